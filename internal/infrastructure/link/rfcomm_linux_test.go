//go:build linux

package link

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBDAddrReversesBytes(t *testing.T) {
	addr, err := parseBDAddr("00:11:22:33:44:55")
	require.NoError(t, err)
	require.Equal(t, [6]uint8{0x55, 0x44, 0x33, 0x22, 0x11, 0x00}, addr)

	_, err = parseBDAddr("not-an-address")
	require.Error(t, err)
}
