package xlsx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Stylesheets written by other producers can carry any number of fonts; load
// must map their references onto the two fonts xml emits so no cellXf points
// at a font that will not be written back.
func TestLoadRestylesForeignFonts(t *testing.T) {
	r := newStyleRegistry()
	r.load(&xmlStyleSheet{
		Fonts: &xmlFonts{Count: 3, Fonts: []xmlFont{
			{},
			{},
			{Bold: &struct{}{}},
		}},
		CellXfs: &xmlCellXfs{Count: 3, Xfs: []xmlXf{
			{FontID: 0},
			{FontID: 2},
			{FontID: 1, NumFmtID: 22},
		}},
	})

	require.Equal(t, fontRegular, r.xfs[0].fontID)
	require.Equal(t, fontBold, r.xfs[1].fontID)
	require.Equal(t, fontRegular, r.xfs[2].fontID)
	require.Equal(t, 22, r.xfs[2].numFmtID)

	out := r.xml()
	require.Len(t, out.Fonts.Fonts, 2)
	for _, xf := range out.CellXfs.Xfs {
		require.Less(t, xf.FontID, len(out.Fonts.Fonts))
	}
}
