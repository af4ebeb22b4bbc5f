// Package specs holds the instrument specification defaults: the SO2 camera
// and the co-aligned spectrometer. Specifications load from and save to the
// same flat key=value format as the processing settings, so a site can
// override the shipped defaults with a plain text file.
package specs

import (
	"fmt"

	"github.com/openso2/camctl/internal/settings"
)

// CameraSpecs describes the camera hardware and its filename conventions.
type CameraSpecs struct {
	// Sensor
	PixSizeX float64 // Pixel width in m
	PixSizeY float64 // Pixel height in m
	PixNumX  int     // Number of pixels in horizontal
	PixNumY  int     // Number of pixels in vertical
	FOVX     float64 // Field of view in x (degrees)
	FOVY     float64 // Field of view in y (degrees)

	// Filename conventions
	FileExt       string            // Image file extension
	FileDateFmt   string            // Date/time layout in filenames
	FileFilterIDs map[string]string // Band -> filter identifier ("on" -> "fltrA")
	FileSSUnits   float64           // Shutter-speed unit relative to seconds
	FileImgTypes  map[string]string // Image type markers in filenames
	FileFilterLoc int               // Index of the filter ID in '_'-split filenames

	// Acquisition
	AnalogGain int
	AutoSS     bool // Automated shutter-speed adjustment
}

// SpecSpecs describes the spectrometer.
type SpecSpecs struct {
	Model           string
	FOV             float64
	PixNum          int
	IntegrationTime int // Integration time in ms
	Coadd           int // Spectra co-added per saved spectrum

	FileCoadd    string // Coadd marker in spectrum filenames
	FileCoaddLoc int    // Index of the coadd marker in '_'-split filenames
}

// DefaultCameraSpecs returns the binned picam defaults.
func DefaultCameraSpecs() CameraSpecs {
	return CameraSpecs{
		PixSizeX: 5.6e-6,
		PixSizeY: 5.6e-6,
		PixNumX:  648,
		PixNumY:  486,
		FOVX:     28,
		FOVY:     24,

		FileExt:       ".png",
		FileDateFmt:   "2006-01-02T150405",
		FileFilterIDs: map[string]string{"on": "fltrA", "off": "fltrB"},
		FileSSUnits:   1e-6,
		FileImgTypes:  map[string]string{"meas": "Plume", "dark": "Dark", "cal": "ppm"},
		FileFilterLoc: 1,

		AnalogGain: 1,
		AutoSS:     true,
	}
}

// DefaultSpecSpecs returns the Flame-S defaults.
func DefaultSpecSpecs() SpecSpecs {
	return SpecSpecs{
		Model:           "Flame-S",
		FOV:             1,
		PixNum:          2048,
		IntegrationTime: 100,
		Coadd:           10,

		FileCoadd:    "coadd",
		FileCoaddLoc: 2,
	}
}

// FilterID returns the filename identifier of the given band ("on"/"off").
func (c CameraSpecs) FilterID(band string) (string, error) {
	id, ok := c.FileFilterIDs[band]
	if !ok {
		return "", fmt.Errorf("unknown filter band %q", band)
	}
	return id, nil
}

// Save writes the camera specification in the flat settings format.
func (c CameraSpecs) Save(path string) error {
	doc := settings.NewDocument()
	doc.AppendComment("Camera specification")
	doc.Set("pix_size_x", settings.Float(c.PixSizeX))
	doc.Set("pix_size_y", settings.Float(c.PixSizeY))
	doc.Set("pix_num_x", settings.Int(int64(c.PixNumX)))
	doc.Set("pix_num_y", settings.Int(int64(c.PixNumY)))
	doc.Set("fov_x", settings.Float(c.FOVX))
	doc.Set("fov_y", settings.Float(c.FOVY))
	doc.Set("file_ext", settings.String(c.FileExt))
	doc.Set("file_datestr", settings.String(c.FileDateFmt))
	doc.Set("file_filterids", settings.StringList(c.FileFilterIDs["on"], c.FileFilterIDs["off"]))
	doc.Set("file_ss_units", settings.Float(c.FileSSUnits))
	doc.Set("file_fltr_loc", settings.Int(int64(c.FileFilterLoc)))
	doc.Set("analog_gain", settings.Int(int64(c.AnalogGain)))
	doc.Set("auto_ss", settings.Flag(c.AutoSS))
	return doc.WriteFile(path)
}

// LoadCameraSpecs reads a camera specification file, starting from the
// defaults and overriding every key present in the file.
func LoadCameraSpecs(path string) (CameraSpecs, error) {
	c := DefaultCameraSpecs()

	doc, err := settings.ParseFile(path)
	if err != nil {
		return c, err
	}

	if v, ok := doc.Lookup("pix_size_x"); ok {
		if c.PixSizeX, err = v.Float(); err != nil {
			return c, fmt.Errorf("pix_size_x: %w", err)
		}
	}
	if v, ok := doc.Lookup("pix_size_y"); ok {
		if c.PixSizeY, err = v.Float(); err != nil {
			return c, fmt.Errorf("pix_size_y: %w", err)
		}
	}
	if v, ok := doc.Lookup("pix_num_x"); ok {
		n, err := v.Int()
		if err != nil {
			return c, fmt.Errorf("pix_num_x: %w", err)
		}
		c.PixNumX = int(n)
	}
	if v, ok := doc.Lookup("pix_num_y"); ok {
		n, err := v.Int()
		if err != nil {
			return c, fmt.Errorf("pix_num_y: %w", err)
		}
		c.PixNumY = int(n)
	}
	if v, ok := doc.Lookup("fov_x"); ok {
		if c.FOVX, err = v.Float(); err != nil {
			return c, fmt.Errorf("fov_x: %w", err)
		}
	}
	if v, ok := doc.Lookup("fov_y"); ok {
		if c.FOVY, err = v.Float(); err != nil {
			return c, fmt.Errorf("fov_y: %w", err)
		}
	}
	if v, ok := doc.Lookup("file_ext"); ok {
		if c.FileExt, err = v.Str(); err != nil {
			return c, fmt.Errorf("file_ext: %w", err)
		}
	}
	if v, ok := doc.Lookup("file_datestr"); ok {
		if c.FileDateFmt, err = v.Str(); err != nil {
			return c, fmt.Errorf("file_datestr: %w", err)
		}
	}
	if v, ok := doc.Lookup("file_filterids"); ok {
		ids, err := v.StrList()
		if err != nil {
			return c, fmt.Errorf("file_filterids: %w", err)
		}
		if len(ids) != 2 {
			return c, fmt.Errorf("file_filterids: expected 2 identifiers, got %d", len(ids))
		}
		c.FileFilterIDs = map[string]string{"on": ids[0], "off": ids[1]}
	}
	if v, ok := doc.Lookup("file_ss_units"); ok {
		if c.FileSSUnits, err = v.Float(); err != nil {
			return c, fmt.Errorf("file_ss_units: %w", err)
		}
	}
	if v, ok := doc.Lookup("file_fltr_loc"); ok {
		n, err := v.Int()
		if err != nil {
			return c, fmt.Errorf("file_fltr_loc: %w", err)
		}
		c.FileFilterLoc = int(n)
	}
	if v, ok := doc.Lookup("analog_gain"); ok {
		n, err := v.Int()
		if err != nil {
			return c, fmt.Errorf("analog_gain: %w", err)
		}
		c.AnalogGain = int(n)
	}
	if v, ok := doc.Lookup("auto_ss"); ok {
		if c.AutoSS, err = v.Flag(); err != nil {
			return c, fmt.Errorf("auto_ss: %w", err)
		}
	}

	return c, nil
}

// Save writes the spectrometer specification in the flat settings format.
func (s SpecSpecs) Save(path string) error {
	doc := settings.NewDocument()
	doc.AppendComment("Spectrometer specification")
	doc.Set("model", settings.String(s.Model))
	doc.Set("fov", settings.Float(s.FOV))
	doc.Set("pix_num", settings.Int(int64(s.PixNum)))
	doc.Set("int_time", settings.Int(int64(s.IntegrationTime)))
	doc.Set("coadd", settings.Int(int64(s.Coadd)))
	doc.Set("file_coadd", settings.String(s.FileCoadd))
	doc.Set("file_coadd_loc", settings.Int(int64(s.FileCoaddLoc)))
	return doc.WriteFile(path)
}

// LoadSpecSpecs reads a spectrometer specification file over the defaults.
func LoadSpecSpecs(path string) (SpecSpecs, error) {
	s := DefaultSpecSpecs()

	doc, err := settings.ParseFile(path)
	if err != nil {
		return s, err
	}

	if v, ok := doc.Lookup("model"); ok {
		if s.Model, err = v.Str(); err != nil {
			return s, fmt.Errorf("model: %w", err)
		}
	}
	if v, ok := doc.Lookup("fov"); ok {
		if s.FOV, err = v.Float(); err != nil {
			return s, fmt.Errorf("fov: %w", err)
		}
	}
	if v, ok := doc.Lookup("pix_num"); ok {
		n, err := v.Int()
		if err != nil {
			return s, fmt.Errorf("pix_num: %w", err)
		}
		s.PixNum = int(n)
	}
	if v, ok := doc.Lookup("int_time"); ok {
		n, err := v.Int()
		if err != nil {
			return s, fmt.Errorf("int_time: %w", err)
		}
		s.IntegrationTime = int(n)
	}
	if v, ok := doc.Lookup("coadd"); ok {
		n, err := v.Int()
		if err != nil {
			return s, fmt.Errorf("coadd: %w", err)
		}
		s.Coadd = int(n)
	}
	if v, ok := doc.Lookup("file_coadd"); ok {
		if s.FileCoadd, err = v.Str(); err != nil {
			return s, fmt.Errorf("file_coadd: %w", err)
		}
	}
	if v, ok := doc.Lookup("file_coadd_loc"); ok {
		n, err := v.Int()
		if err != nil {
			return s, fmt.Errorf("file_coadd_loc: %w", err)
		}
		s.FileCoaddLoc = int(n)
	}

	return s, nil
}
