package identifier

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUniqueIdentifiers(t *testing.T) {
	got := UniqueIdentifiers("350470106306, 350470106969;\n93")
	require.Equal(t, []string{"350470106306", "350470106969", "93"}, got)

	got = UniqueIdentifiers("abc, it123\tit123\r\nnobarcode, 93 ;;")
	require.Equal(t, []string{"it123", "93"}, got)

	require.Empty(t, UniqueIdentifiers(" \n ,; "))
}

func TestInstanceIDFromAccession(t *testing.T) {
	id, err := InstanceIDFromAccession("cit.oai.....fs00001057.17c5c348.8796.4b11.90a8.6b31ff9509ed")
	require.NoError(t, err)
	require.Equal(t, "17c5c348-8796-4b11-90a8-6b31ff9509ed", id)

	_, err = InstanceIDFromAccession("cit.oai.fs00001057")
	require.ErrorIs(t, err, ErrInvalidAccession)

	_, err = InstanceIDFromAccession("cit.oai.x.zzzzzzzz.8796.4b11.90a8.6b31ff9509ed")
	require.ErrorIs(t, err, ErrInvalidAccession)
}

func TestPadUserBarcode(t *testing.T) {
	padded, ok := PadUserBarcode("12345")
	require.True(t, ok)
	require.Equal(t, "0000012345", padded)

	for _, s := range []string{"1234567890", "12345678901", "12a45", ""} {
		out, ok := PadUserBarcode(s)
		require.False(t, ok, s)
		require.Equal(t, s, out)
	}
}
