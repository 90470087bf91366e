package store

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"doctalk/backend/internal/vector"
)

const (
	indexFile     = "index.bin"
	documentsFile = "documents.json"

	indexMagic   = uint32(0x44544958) // "DTIX"
	indexVersion = uint32(1)
)

// FilePersister round-trips the (index, documents) pair as two files under a
// state directory: an opaque little-endian binary dump of the index and a
// human-inspectable JSON array of document records. The two are always
// written together, documents first, each through a temp-file rename so a
// crash never leaves a half-written artifact in place.
type FilePersister struct {
	dir string
}

func NewFilePersister(dir string) (*FilePersister, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}
	return &FilePersister{dir: dir}, nil
}

// Save writes both artifacts. Writing documents before the index means a
// crash between the two leaves more documents than rows, which Load rejects;
// the reverse ordering could leave an index whose extra rows point at nothing.
func (p *FilePersister) Save(index *vector.Index, docs []Document) error {
	if docs == nil {
		docs = []Document{}
	}
	payload, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding documents: %w", err)
	}
	if err := writeAtomic(filepath.Join(p.dir, documentsFile), func(f *os.File) error {
		_, err := f.Write(payload)
		return err
	}); err != nil {
		return fmt.Errorf("writing documents: %w", err)
	}

	if err := writeAtomic(filepath.Join(p.dir, indexFile), func(f *os.File) error {
		return writeIndex(f, index)
	}); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

// Load reads the pair back. A missing index file yields a nil index and no
// documents regardless of whether a documents file exists. When both files
// exist, the row count is cross-checked against the document count and a
// divergence fails with ErrStateMismatch instead of being served.
func (p *FilePersister) Load() (*vector.Index, []Document, error) {
	f, err := os.Open(filepath.Join(p.dir, indexFile))
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening index: %w", err)
	}
	defer f.Close()

	index, err := readIndex(f)
	if err != nil {
		return nil, nil, fmt.Errorf("reading index: %w", err)
	}

	var docs []Document
	payload, err := os.ReadFile(filepath.Join(p.dir, documentsFile))
	if err != nil && !os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("reading documents: %w", err)
	}
	if err == nil {
		if err := json.Unmarshal(payload, &docs); err != nil {
			return nil, nil, fmt.Errorf("decoding documents: %w", err)
		}
	}

	if index.Rows() != len(docs) {
		return nil, nil, fmt.Errorf("%w: %d index rows, %d documents", ErrStateMismatch, index.Rows(), len(docs))
	}
	return index, docs, nil
}

func writeAtomic(path string, write func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// writeIndex lays the index out as
// magic | version | dimension | rows | rows*dimension float32, little-endian.
func writeIndex(f *os.File, index *vector.Index) error {
	w := bufio.NewWriter(f)
	header := []uint32{indexMagic, indexVersion, uint32(index.Dimension()), uint32(index.Rows())}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	for i := 0; i < index.Rows(); i++ {
		if err := binary.Write(w, binary.LittleEndian, index.Row(i)); err != nil {
			return err
		}
	}
	return w.Flush()
}

func readIndex(f *os.File) (*vector.Index, error) {
	r := bufio.NewReader(f)
	var magic, version, dim, rows uint32
	for _, dst := range []*uint32{&magic, &version, &dim, &rows} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return nil, err
		}
	}
	if magic != indexMagic {
		return nil, fmt.Errorf("not an index file (magic %#x)", magic)
	}
	if version != indexVersion {
		return nil, fmt.Errorf("unsupported index version %d", version)
	}

	index, err := vector.New(int(dim))
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < rows; i++ {
		row := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if err := index.Add([][]float32{row}); err != nil {
			return nil, err
		}
	}
	return index, nil
}
