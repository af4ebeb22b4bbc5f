package settings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaValidate_Defaults(t *testing.T) {
	schema := DefaultProcessSchema()
	doc := DefaultProcess()

	assert.Empty(t, schema.Validate(doc))
	assert.Empty(t, schema.UnknownKeys(doc))
}

func TestSchemaValidate_MissingRequired(t *testing.T) {
	schema := DefaultProcessSchema()
	doc := NewDocument()
	doc.Set("bg_mode", Int(4))

	errs := schema.Validate(doc)

	require.NotEmpty(t, errs)
	joined := make([]string, len(errs))
	for i, err := range errs {
		joined[i] = err.Error()
	}
	assert.Contains(t, strings.Join(joined, "; "), `required key "init_dir" is missing`)
}

func TestSchemaValidate_RoiLength(t *testing.T) {
	schema := DefaultProcessSchema()
	doc := DefaultProcess()
	doc.Set("roi_abs", IntList(151, 150, 372))

	errs := schema.Validate(doc)

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "expected 4 elements, got 3")
}

func TestSchemaValidate_FlagOutOfRange(t *testing.T) {
	schema := DefaultProcessSchema()
	doc := DefaultProcess()
	doc.Set("auto_param_bg", Int(3))

	errs := schema.Validate(doc)

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "auto_param_bg")
}

func TestSchemaValidate_KindMismatch(t *testing.T) {
	schema := DefaultProcessSchema()
	doc := DefaultProcess()
	require.NoError(t, doc.SetRaw("min_cd", "'not a number'"))

	errs := schema.Validate(doc)

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "min_cd")
}

func TestSchemaValidate_IntAcceptedAsFloat(t *testing.T) {
	schema := DefaultProcessSchema()
	doc := DefaultProcess()
	doc.Set("poly_sigma", Int(1))

	assert.Empty(t, schema.Validate(doc))
}

func TestSchemaValidateKey(t *testing.T) {
	schema := DefaultProcessSchema()
	doc := DefaultProcess()

	assert.NoError(t, schema.ValidateKey(doc, "bg_mode"))
	assert.NoError(t, schema.ValidateKey(doc, "mystery_knob"))

	doc.Set("roi_abs", IntList(151, 150, 372))
	err := schema.ValidateKey(doc, "roi_abs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 4 elements, got 3")
}

func TestSchemaValidateKey_IgnoresOtherKeys(t *testing.T) {
	schema := DefaultProcessSchema()

	// amb_roi is broken, but editing the unrelated roi_abs must still be
	// allowed.
	doc := DefaultProcess()
	require.NoError(t, doc.SetRaw("amb_roi", "'not a region'"))
	doc.Set("roi_abs", IntList(10, 10, 200, 200))

	assert.NoError(t, schema.ValidateKey(doc, "roi_abs"))
	assert.Error(t, schema.ValidateKey(doc, "amb_roi"))
}

func TestUnknownKeys(t *testing.T) {
	schema := DefaultProcessSchema()
	doc := DefaultProcess()
	doc.Set("mystery_knob", Int(1))

	unknown := schema.UnknownKeys(doc)

	assert.Equal(t, []string{"mystery_knob"}, unknown)
}

func TestDefaultProcess_SpecificValues(t *testing.T) {
	doc := DefaultProcess()

	roi, err := doc.IntList("roi_abs")
	require.NoError(t, err)
	assert.Equal(t, []int{151, 150, 372, 239}, roi)

	minCD, err := doc.Float("min_cd")
	require.NoError(t, err)
	assert.Equal(t, 5e16, minCD)

	dilution, err := doc.Flag("use_light_dilution")
	require.NoError(t, err)
	assert.True(t, dilution)
}
