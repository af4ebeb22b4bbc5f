package settings

import (
	"fmt"
	"math"
	"sort"
)

// KeySpec describes the expected shape of one settings key.
type KeySpec struct {
	Kind     Kind
	Required bool
	ListLen  int  // Expected element count for KindIntList, 0 for any
	IsFlag   bool // KindInt restricted to 0/1
}

// Schema is a declarative table of known settings keys. Validation checks
// every bound key against its spec; unknown keys are reported separately
// because the consuming worker ignores them rather than failing.
type Schema struct {
	keys map[string]KeySpec
}

// NewSchema creates a schema from a key table.
func NewSchema(keys map[string]KeySpec) *Schema {
	return &Schema{keys: keys}
}

// Validate checks the document against the schema and returns all problems.
func (s *Schema) Validate(doc *Document) []error {
	var errs []error

	names := make([]string, 0, len(s.keys))
	for name := range s.keys {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := s.keys[name]
		value, ok := doc.Lookup(name)
		if !ok {
			if spec.Required {
				errs = append(errs, fmt.Errorf("required key %q is missing", name))
			}
			continue
		}

		if err := checkValue(name, value, spec); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}

// ValidateKey checks one bound key against the schema, ignoring every other
// key in the document. Keys the schema does not know pass, matching the
// consumer's ignore-unknown behaviour.
func (s *Schema) ValidateKey(doc *Document, name string) error {
	spec, ok := s.keys[name]
	if !ok {
		return nil
	}

	value, ok := doc.Lookup(name)
	if !ok {
		return nil
	}

	return checkValue(name, value, spec)
}

// checkValue validates a single value against its key spec.
func checkValue(name string, value Value, spec KeySpec) error {
	switch spec.Kind {
	case KindString:
		if value.Kind != KindString {
			return fmt.Errorf("key %q: expected a quoted string, got %s", name, value.Kind)
		}

	case KindStringList:
		if value.Kind != KindString && value.Kind != KindStringList {
			return fmt.Errorf("key %q: expected quoted strings, got %s", name, value.Kind)
		}

	case KindInt:
		if value.Kind != KindInt {
			return fmt.Errorf("key %q: expected an integer, got %s", name, value.Kind)
		}
		if spec.IsFlag {
			if _, err := value.Flag(); err != nil {
				return fmt.Errorf("key %q: %w", name, err)
			}
		}

	case KindFloat:
		f, err := value.Float()
		if err != nil {
			return fmt.Errorf("key %q: expected a float, got %s", name, value.Kind)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("key %q: float value must be finite", name)
		}

	case KindIntList:
		ints, err := value.IntList()
		if err != nil {
			return fmt.Errorf("key %q: expected a bracketed integer list, got %s", name, value.Kind)
		}
		if spec.ListLen > 0 && len(ints) != spec.ListLen {
			return fmt.Errorf("key %q: expected %d elements, got %d", name, spec.ListLen, len(ints))
		}
	}

	return nil
}

// UnknownKeys returns the document's keys that the schema does not know, in
// file order.
func (s *Schema) UnknownKeys(doc *Document) []string {
	var unknown []string
	for _, key := range doc.Keys() {
		if _, ok := s.keys[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	return unknown
}

// flag is shorthand for a 0/1 integer flag spec.
func flag() KeySpec { return KeySpec{Kind: KindInt, IsFlag: true} }

// roi is shorthand for a 4-element rectangular region spec.
func roi() KeySpec { return KeySpec{Kind: KindIntList, ListLen: 4} }

// DefaultProcessSchema returns the schema of the plume-processing defaults
// file: file paths, analysis regions, background-model parameters, camera
// calibration, Farneback optical-flow parameters, DOAS FOV calibration and
// light-dilution correction.
func DefaultProcessSchema() *Schema {
	return NewSchema(map[string]KeySpec{
		// Paths
		"init_dir":         {Kind: KindString, Required: true},
		"dark_img_dir":     {Kind: KindString},
		"cell_cal_dir":     {Kind: KindString},
		"bg_img_A":         {Kind: KindString, Required: true},
		"bg_dark_A":        {Kind: KindString, Required: true},
		"bg_img_B":         {Kind: KindString, Required: true},
		"bg_dark_B":        {Kind: KindString, Required: true},
		"img_registration": {Kind: KindString},
		"doas_filename":    {Kind: KindString},

		// Analysis regions
		"roi_abs":  roi(),
		"amb_roi":  roi(),
		"roi_flow": roi(),

		// Background modelling
		"bg_mode":           {Kind: KindInt},
		"auto_param_bg":     flag(),
		"polyfit_2d_thresh": {Kind: KindInt},

		// Calibration
		"cal_type_int":         {Kind: KindInt},
		"use_sensitivity_mask": flag(),
		"min_cd":               {Kind: KindFloat},
		"ref_check_lower":      {Kind: KindFloat},
		"ref_check_upper":      {Kind: KindFloat},
		"ref_check_mode":       flag(),

		// Optical flow (Farneback)
		"pyr_scale":         {Kind: KindFloat},
		"levels":            {Kind: KindInt},
		"winsize":           {Kind: KindInt},
		"iterations":        {Kind: KindInt},
		"poly_n":            {Kind: KindInt},
		"poly_sigma":        {Kind: KindFloat},
		"min_length":        {Kind: KindFloat},
		"min_count_frac":    {Kind: KindFloat},
		"hist_dir_gnum_max": {Kind: KindInt},
		"hist_dir_binres":   {Kind: KindInt},
		"hist_sigma_tol":    {Kind: KindFloat},
		"use_roi":           flag(),
		"use_multi_gauss":   flag(),
		"save_opt_flow":     flag(),

		// DOAS FOV calibration
		"doas_fov_x":          {Kind: KindFloat},
		"doas_fov_y":          {Kind: KindFloat},
		"doas_fov_extent":     {Kind: KindFloat},
		"doas_recal":          flag(),
		"doas_fov_recal_mins": {Kind: KindInt},
		"max_doas_cam_dif":    {Kind: KindInt},
		"fix_fov":             flag(),
		"remove_doas_mins":    {Kind: KindInt},

		// Light dilution
		"use_light_dilution": flag(),
		"dil_recal_time":     {Kind: KindInt},
		"ambient_roi":        roi(),
		"I0_MIN":             {Kind: KindFloat},

		// Plume geometry
		"plume_lat":      {Kind: KindFloat},
		"plume_lon":      {Kind: KindFloat},
		"plume_altitude": {Kind: KindInt},
		"plume_dir":      {Kind: KindFloat},
	})
}

// DefaultProcess returns a settings document carrying the shipped processing
// defaults, the content a fresh deployment writes before a site-specific
// configuration exists.
func DefaultProcess() *Document {
	doc := NewDocument()

	doc.AppendComment("Processing defaults for the plume analysis worker")

	doc.AppendBlank()
	doc.AppendComment("Paths")
	doc.Set("init_dir", String("C:\\Users\\pycam\\Data\\Images"))
	doc.Set("dark_img_dir", String("C:\\Users\\pycam\\Data\\Dark"))
	doc.Set("cell_cal_dir", String("C:\\Users\\pycam\\Data\\Cells"))
	doc.Set("bg_img_A", String("2019-09-18T074335_fltrA_1ag_999904ss_Clear.png"))
	doc.Set("bg_dark_A", String("2019-09-18T074918_fltrA_1ag_999904ss_Dark.png"))
	doc.Set("bg_img_B", String("2019-09-18T074335_fltrB_1ag_999904ss_Clear.png"))
	doc.Set("bg_dark_B", String("2019-09-18T074918_fltrB_1ag_999904ss_Dark.png"))
	doc.Set("img_registration", String(""))
	doc.Set("doas_filename", String("doas_results.csv"))

	doc.AppendBlank()
	doc.AppendComment("Analysis regions [x0, y0, x1, y1]")
	doc.Set("roi_abs", IntList(151, 150, 372, 239))
	doc.Set("amb_roi", IntList(0, 0, 50, 50))
	doc.Set("roi_flow", IntList(100, 100, 300, 300))

	doc.AppendBlank()
	doc.AppendComment("Background modelling")
	doc.Set("bg_mode", Int(4))
	doc.Set("auto_param_bg", Flag(true))
	doc.Set("polyfit_2d_thresh", Int(100))

	doc.AppendBlank()
	doc.AppendComment("Calibration")
	doc.Set("cal_type_int", Int(1))
	doc.Set("use_sensitivity_mask", Flag(false))
	doc.Set("min_cd", Float(5e16))
	doc.Set("ref_check_lower", Float(-2.5e17))
	doc.Set("ref_check_upper", Float(2.5e17))
	doc.Set("ref_check_mode", Flag(true))

	doc.AppendBlank()
	doc.AppendComment("Optical flow (Farneback)")
	doc.Set("pyr_scale", Float(0.5))
	doc.Set("levels", Int(4))
	doc.Set("winsize", Int(20))
	doc.Set("iterations", Int(5))
	doc.Set("poly_n", Int(5))
	doc.Set("poly_sigma", Float(1.1))
	doc.Set("min_length", Float(1.0))
	doc.Set("min_count_frac", Float(0.1))
	doc.Set("hist_dir_gnum_max", Int(5))
	doc.Set("hist_dir_binres", Int(10))
	doc.Set("hist_sigma_tol", Float(3.0))
	doc.Set("use_roi", Flag(true))
	doc.Set("use_multi_gauss", Flag(true))
	doc.Set("save_opt_flow", Flag(false))

	doc.AppendBlank()
	doc.AppendComment("DOAS FOV calibration")
	doc.Set("doas_fov_x", Float(324.0))
	doc.Set("doas_fov_y", Float(243.0))
	doc.Set("doas_fov_extent", Float(15.0))
	doc.Set("doas_recal", Flag(true))
	doc.Set("doas_fov_recal_mins", Int(30))
	doc.Set("max_doas_cam_dif", Int(5))
	doc.Set("fix_fov", Flag(false))
	doc.Set("remove_doas_mins", Int(120))

	doc.AppendBlank()
	doc.AppendComment("Light dilution")
	doc.Set("use_light_dilution", Flag(true))
	doc.Set("dil_recal_time", Int(60))
	doc.Set("ambient_roi", IntList(0, 0, 40, 40))
	doc.Set("I0_MIN", Float(0.0))

	doc.AppendBlank()
	doc.AppendComment("Plume geometry")
	doc.Set("plume_lat", Float(37.751))
	doc.Set("plume_lon", Float(14.9934))
	doc.Set("plume_altitude", Int(3330))
	doc.Set("plume_dir", Float(270.0))

	return doc
}
