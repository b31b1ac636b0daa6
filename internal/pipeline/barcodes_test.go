package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-amplicon-pipeline/internal/config"
	"go-amplicon-pipeline/internal/model"
)

func loadBarcodes(t *testing.T, barcodes string) *BarcodeResolver {
	t.Helper()
	cfg, err := config.Parse([]byte(`{
		"SAMPLE": ["s1", "s2"],
		"INPUTDIR": "/in",
		"OUTDIR": "/out",
		"CHOPPER_QUAL": 10,
		"barcodes": ` + barcodes + `
	}`))
	require.NoError(t, err)
	return NewBarcodeResolver(cfg)
}

func TestBarcodesFor_Shared(t *testing.T) {
	r := loadBarcodes(t, `["1", 2, "03"]`)
	for i := 0; i < 2; i++ {
		ids, err := r.BarcodesFor(i)
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2", "03"}, ids)
	}
}

func TestBarcodesFor_Nested(t *testing.T) {
	r := loadBarcodes(t, `[["1", "2", "3"], ["4", "5"]]`)

	ids, err := r.BarcodesFor(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids)

	ids, err = r.BarcodesFor(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "5"}, ids)
}

func TestBarcodesFor_EmptySubList(t *testing.T) {
	r := loadBarcodes(t, `[["1"], []]`)

	_, err := r.BarcodesFor(0)
	require.NoError(t, err)

	_, err = r.BarcodesFor(1)
	require.Error(t, err)
	var pe *model.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, model.ConfigError, pe.Kind)
	assert.Equal(t, "s2", pe.Sample)
}

func TestBarcodesFor_ReturnsCopy(t *testing.T) {
	r := loadBarcodes(t, `["1", "2"]`)
	ids, err := r.BarcodesFor(0)
	require.NoError(t, err)
	ids[0] = "changed"

	again, err := r.BarcodesFor(1)
	require.NoError(t, err)
	assert.Equal(t, "1", again[0])
}

func TestBarcodesFor_OutOfRange(t *testing.T) {
	r := loadBarcodes(t, `["1"]`)
	_, err := r.BarcodesFor(5)
	assert.True(t, model.IsKind(err, model.ConfigError))
}
