package config

import (
	"bytes"
	"image"
	"image/png"
	"path"
	"testing"

	"github.com/gomlx/imagedata/pkg/data/bundle"
	"github.com/gomlx/imagedata/pkg/data/dataerrors"
	"github.com/gomlx/imagedata/pkg/data/weights"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, "train", c.Folders.Train)
	assert.Equal(t, 64, c.Loader.BatchSize)
	opts := must.M1(c.BundleOptions())
	assert.Equal(t, weights.None, opts.Balance)
	csvOpts := c.CSVOptions()
	assert.Equal(t, ',', csvOpts.Parse.Delimiter)
	assert.Equal(t, 0.2, csvOpts.ValPct)
	assert.Equal(t, int64(42), csvOpts.Seed)

	rule := c.Rule()
	assert.Equal(t, "wt", must.M1(rule("0_wt")))
	c.ClassRule.Segment = -1
	assert.Equal(t, "0_wt", must.M1(c.Rule()("0_wt")))
}

func TestLoadSave(t *testing.T) {
	fs := afero.NewMemMapFs()
	yamlConfig := `
root: /data/cells
source: csv
csv:
  file: labels.csv
  folder: imgs
  delimiter: ";"
  suffix: .png
balance: adjusted
loader:
  batch_size: 16
transforms:
  size: 32
  mean: [0.5, 0.5, 0.5]
  std: [0.25, 0.25, 0.25]
`
	require.NoError(t, afero.WriteFile(fs, "conf/data.yaml", []byte(yamlConfig), 0644))
	c := must.M1(Load(fs, "conf/data.yaml"))
	assert.Equal(t, "/data/cells", c.Root)
	assert.Equal(t, SourceCSV, c.Source)
	assert.Equal(t, ';', c.CSVOptions().Parse.Delimiter)
	assert.Equal(t, ".png", c.CSV.Suffix)
	assert.Equal(t, 16, c.Loader.BatchSize)
	assert.Equal(t, 8, c.Loader.Workers, "default kept")
	assert.Equal(t, 0.2, c.CSV.ValPct, "default kept")
	assert.Equal(t, weights.AdjustedWeights, must.M1(c.BundleOptions()).Balance)

	tfms := must.M1(c.TransformSet())
	assert.Equal(t, 32, tfms.Train.Size)
	assert.Len(t, tfms.Train.Steps, 4) // Scale, CenterCrop, Flip, Normalize.
	assert.Len(t, tfms.Eval.Steps, 3)

	require.NoError(t, c.Save(fs, "out/saved.yaml"))
	reloaded := must.M1(Load(fs, "out/saved.yaml"))
	assert.Equal(t, c, reloaded)
}

func TestLoadErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := Load(fs, "missing.yaml")
	assert.True(t, errors.Is(err, dataerrors.ErrNotFound))

	require.NoError(t, afero.WriteFile(fs, "bad.yaml", []byte("root: [unclosed"), 0644))
	_, err = Load(fs, "bad.yaml")
	assert.True(t, errors.Is(err, dataerrors.ErrConfiguration))

	require.NoError(t, afero.WriteFile(fs, "invalid.yaml", []byte("loader:\n  batch_size: 0\n"), 0644))
	_, err = Load(fs, "invalid.yaml")
	assert.True(t, errors.Is(err, dataerrors.ErrConfiguration))
}

func TestValidate(t *testing.T) {
	for name, modify := range map[string]func(c *Config){
		"empty root":        func(c *Config) { c.Root = "" },
		"unknown source":    func(c *Config) { c.Source = "sql" },
		"absolute train":    func(c *Config) { c.Folders.Train = "/abs/train" },
		"missing valid":     func(c *Config) { c.Folders.Valid = "" },
		"absolute csv dir":  func(c *Config) { c.Source = SourceCSV; c.CSV.Folder = "/abs" },
		"val_pct 0":         func(c *Config) { c.Source = SourceCSV; c.CSV.ValPct = 0 },
		"val_pct 1":         func(c *Config) { c.Source = SourceCSV; c.CSV.ValPct = 1 },
		"long delimiter":    func(c *Config) { c.Source = SourceCSV; c.CSV.Delimiter = ",," },
		"batch size":        func(c *Config) { c.Loader.BatchSize = -1 },
		"balance":           func(c *Config) { c.Balance = "smote" },
		"flip prob":         func(c *Config) { c.Transforms.FlipProb = 1.5 },
		"mean/std mismatch": func(c *Config) { c.Transforms.Mean = []float32{0.5} },
		"resize target":     func(c *Config) { c.Resize.Target = -3 },
		"absolute cache":    func(c *Config) { c.Resize.Target = 32; c.Resize.Cache = "/tmp" },
	} {
		c := Default()
		modify(c)
		err := c.Validate()
		assert.Truef(t, errors.Is(err, dataerrors.ErrConfiguration), "%s: got %v", name, err)
	}
}

func writePNG(t *testing.T, fs afero.Fs, filePath string) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 12, 10))))
	require.NoError(t, fs.MkdirAll(path.Dir(filePath), 0755))
	require.NoError(t, afero.WriteFile(fs, filePath, buf.Bytes(), 0644))
}

func TestOpen(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, p := range []string{"train/0_wt/a.png", "train/1_ko/b.png", "train/1_ko/c.png", "valid/0_wt/d.png"} {
		writePNG(t, fs, path.Join("ds", p))
	}
	c := Default()
	c.Root = "ds"
	c.Transforms.Size = 8
	c.Resize.Target = 8
	c.Balance = "oversample"
	var progressCalls int
	b := must.M1(c.Open(fs, func(int) { progressCalls++ }))
	assert.Equal(t, "ds/tmp/8", b.Root())
	assert.Equal(t, 4, progressCalls)
	assert.Equal(t, []string{"wt", "ko"}, b.Classes())
	assert.Equal(t, 4, b.Len(bundle.TrainView), "oversampled")
	item := must.M1(b.View(bundle.TrainView).Get(0))
	assert.Equal(t, [3]int{8, 8, 3}, item.Input.Shape()) // Resized copies are stored as RGB.
}
