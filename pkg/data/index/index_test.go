package index

import (
	"path"
	"strings"
	"testing"

	"github.com/gomlx/imagedata/pkg/data/dataerrors"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFiles creates the given files (with dummy contents) under root.
func writeFiles(fs afero.Fs, root string, files ...string) {
	for _, f := range files {
		must.M(afero.WriteFile(fs, path.Join(root, f), []byte("x"), 0644))
	}
}

func TestScanFolder(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := "/data"
	writeFiles(fs, root,
		"train/02_ko/b.png", "train/02_ko/a.png",
		"train/01_wt/c.png",
		"train/01_wt/.DS_Store",
		"train/.DS_Store",
		"train/.ipynb_checkpoints/x.png",
		"train/README.txt",
	)
	must.M(fs.MkdirAll(path.Join(root, "train", "03_het"), 0755))

	scan, err := ScanFolder(fs, root, "train")
	require.NoError(t, err)
	assert.Equal(t, []string{"01_wt", "02_ko", "03_het"}, scan.Labels)
	assert.Equal(t, []string{"train/01_wt/c.png", "train/02_ko/a.png", "train/02_ko/b.png"}, scan.Paths())
	assert.Equal(t, []string{"01_wt", "02_ko", "02_ko"}, scan.RawLabels())
}

func TestScanFolderErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := "/data"

	_, err := ScanFolder(fs, root, "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, dataerrors.ErrNotFound))

	writeFiles(fs, root, "flat/a.png")
	_, err = ScanFolder(fs, root, "flat")
	require.Error(t, err)
	assert.True(t, errors.Is(err, dataerrors.ErrNotFound), "no label folders: %v", err)

	must.M(fs.MkdirAll(path.Join(root, "empty", "01_wt"), 0755))
	_, err = ScanFolder(fs, root, "empty")
	require.Error(t, err)
	assert.True(t, errors.Is(err, dataerrors.ErrNotFound), "no files: %v", err)

	_, err = ScanFolder(fs, root, "flat/a.png")
	require.Error(t, err)
	assert.True(t, errors.Is(err, dataerrors.ErrNotFound), "not a folder: %v", err)
}

func TestReadDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := "/data"
	writeFiles(fs, root, "test/b.png", "test/a.tif", "test/noext", "test/.hidden.png")
	fnames, err := ReadDir(fs, root, "test")
	require.NoError(t, err)
	assert.Equal(t, []string{"test/a.tif", "test/b.png"}, fnames)

	_, err = ReadDir(fs, root, "nope")
	assert.True(t, errors.Is(err, dataerrors.ErrNotFound))
}

func TestParseCSVLabels(t *testing.T) {
	fs := afero.NewMemMapFs()
	csv := strings.Join([]string{
		"image_name,tags",
		"c,dog",
		"a,cat  dog",
		"b,cat",
	}, "\n") + "\n"
	must.M(afero.WriteFile(fs, "/data/labels.csv", []byte(csv), 0644))

	m, err := ParseCSVLabels(fs, "/data/labels.csv", DefaultCSVOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, m.Filenames)
	assert.Equal(t, []string{"cat", "dog"}, m.Labels["a"])
	assert.Equal(t, []string{"cat"}, m.Labels["b"])
	assert.Equal(t, []RawRecord{
		{"a", "cat"}, {"a", "dog"}, {"b", "cat"}, {"c", "dog"},
	}, m.Records())

	// Without header, and custom separators.
	csv = "x.jpg;1.5|2\ny.jpg;3|4\n"
	must.M(afero.WriteFile(fs, "/data/reg.csv", []byte(csv), 0644))
	m, err = ParseCSVLabels(fs, "/data/reg.csv", CSVOptions{Delimiter: ';', CategorySeparator: "|"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x.jpg", "y.jpg"}, m.Filenames)
	assert.Equal(t, []string{"1.5", "2"}, m.Labels["x.jpg"])

	_, err = ParseCSVLabels(fs, "/data/missing.csv", DefaultCSVOptions())
	assert.True(t, errors.Is(err, dataerrors.ErrNotFound))

	must.M(afero.WriteFile(fs, "/data/one.csv", []byte("name\na\n"), 0644))
	_, err = ParseCSVLabels(fs, "/data/one.csv", DefaultCSVOptions())
	assert.True(t, errors.Is(err, dataerrors.ErrConfiguration))
}

func TestParseCSVLabelsEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	for name, contents := range map[string]string{
		"/data/empty.csv":  "",
		"/data/blank.csv":  "\n\n",
		"/data/header.csv": "image_name,tags\n",
	} {
		must.M(afero.WriteFile(fs, name, []byte(contents), 0644))
		_, err := ParseCSVLabels(fs, name, DefaultCSVOptions())
		require.Errorf(t, err, "manifest %q", name)
		assert.Truef(t, errors.Is(err, dataerrors.ErrNotFound), "manifest %q: %v", name, err)
	}

	// Without header, a single row is a sample.
	must.M(afero.WriteFile(fs, "/data/single.csv", []byte("a.png,cat\n"), 0644))
	m, err := ParseCSVLabels(fs, "/data/single.csv", CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png"}, m.Filenames)
}
