package embedding

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rushteam/embedrec/core"
)

// NumPy .npy v1.0 编解码，覆盖本引擎用到的子集：
// 2 维、C 序、小端 '<f4' / '<f8'。
// 相似度矩阵与向量工件因此可与上游编码器工具链互通。

var npyMagic = []byte{0x93, 'N', 'U', 'M', 'P', 'Y'}

// WriteMatrixNPY 把相似度矩阵以 '<f4' 写为 .npy 工件。
func WriteMatrixNPY(path string, m *core.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("npy: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := writeHeader(w, "<f4", m.Rows(), m.Cols()); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, m.Data()); err != nil {
		return fmt.Errorf("npy: write body: %w", err)
	}
	return w.Flush()
}

// ReadMatrixNPY 读取 .npy 工件为 float32 矩阵，'<f8' 会被降为单精度。
func ReadMatrixNPY(path string) (*core.Matrix, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	nr := len(rows)
	nc := 0
	if nr > 0 {
		nc = len(rows[0])
	}
	data := make([]float32, 0, nr*nc)
	for _, row := range rows {
		for _, v := range row {
			data = append(data, float32(v))
		}
	}
	return core.NewMatrixFromData(nr, nc, data)
}

// WriteVectorsNPY 把向量矩阵以 '<f8' 写为 .npy 工件。
func WriteVectorsNPY(path string, vectors [][]float64) error {
	rows := len(vectors)
	cols := 0
	if rows > 0 {
		cols = len(vectors[0])
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("npy: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := writeHeader(w, "<f8", rows, cols); err != nil {
		return err
	}
	for i, row := range vectors {
		if len(row) != cols {
			return fmt.Errorf("npy: ragged row %d: %d columns, want %d", i, len(row), cols)
		}
		if err := binary.Write(w, binary.LittleEndian, row); err != nil {
			return fmt.Errorf("npy: write body: %w", err)
		}
	}
	return w.Flush()
}

// ReadVectorsNPY 读取 .npy 工件为 float64 向量矩阵，接受 '<f4' 与 '<f8'。
func ReadVectorsNPY(path string) ([][]float64, error) {
	return readRows(path)
}

func writeHeader(w io.Writer, descr string, rows, cols int) error {
	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%d, %d), }", descr, rows, cols)
	// 头部总长（magic + 版本 + 长度字段 + dict + 填充 + '\n'）对齐到 64 字节
	total := len(npyMagic) + 2 + 2 + len(dict) + 1
	pad := (64 - total%64) % 64
	dict += strings.Repeat(" ", pad) + "\n"

	if _, err := w.Write(npyMagic); err != nil {
		return fmt.Errorf("npy: write magic: %w", err)
	}
	if _, err := w.Write([]byte{1, 0}); err != nil {
		return fmt.Errorf("npy: write version: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(dict))); err != nil {
		return fmt.Errorf("npy: write header length: %w", err)
	}
	if _, err := io.WriteString(w, dict); err != nil {
		return fmt.Errorf("npy: write header: %w", err)
	}
	return nil
}

func readRows(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("npy: open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	descr, rows, cols, err := readHeader(r)
	if err != nil {
		return nil, fmt.Errorf("npy: %s: %w", path, err)
	}

	out := make([][]float64, rows)
	switch descr {
	case "<f8":
		for i := range out {
			row := make([]float64, cols)
			if err := binary.Read(r, binary.LittleEndian, row); err != nil {
				return nil, fmt.Errorf("npy: read row %d: %w", i, err)
			}
			out[i] = row
		}
	case "<f4":
		buf := make([]float32, cols)
		for i := range out {
			if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
				return nil, fmt.Errorf("npy: read row %d: %w", i, err)
			}
			row := make([]float64, cols)
			for j, v := range buf {
				row[j] = float64(v)
			}
			out[i] = row
		}
	default:
		return nil, fmt.Errorf("npy: unsupported dtype %q", descr)
	}
	return out, nil
}

func readHeader(r io.Reader) (descr string, rows, cols int, err error) {
	magic := make([]byte, len(npyMagic)+2)
	if _, err = io.ReadFull(r, magic); err != nil {
		return "", 0, 0, fmt.Errorf("read magic: %w", err)
	}
	if string(magic[:len(npyMagic)]) != string(npyMagic) {
		return "", 0, 0, fmt.Errorf("not an npy file")
	}
	if magic[len(npyMagic)] != 1 {
		return "", 0, 0, fmt.Errorf("unsupported npy version %d.%d", magic[len(npyMagic)], magic[len(npyMagic)+1])
	}

	var hlen uint16
	if err = binary.Read(r, binary.LittleEndian, &hlen); err != nil {
		return "", 0, 0, fmt.Errorf("read header length: %w", err)
	}
	header := make([]byte, hlen)
	if _, err = io.ReadFull(r, header); err != nil {
		return "", 0, 0, fmt.Errorf("read header: %w", err)
	}
	dict := string(header)

	descr, err = headerField(dict, "'descr':")
	if err != nil {
		return "", 0, 0, err
	}
	if strings.Contains(dict, "'fortran_order': True") {
		return "", 0, 0, fmt.Errorf("fortran order not supported")
	}
	rows, cols, err = headerShape(dict)
	return descr, rows, cols, err
}

func headerField(dict, key string) (string, error) {
	i := strings.Index(dict, key)
	if i < 0 {
		return "", fmt.Errorf("header missing %s", key)
	}
	rest := dict[i+len(key):]
	start := strings.Index(rest, "'")
	if start < 0 {
		return "", fmt.Errorf("malformed %s", key)
	}
	end := strings.Index(rest[start+1:], "'")
	if end < 0 {
		return "", fmt.Errorf("malformed %s", key)
	}
	return rest[start+1 : start+1+end], nil
}

func headerShape(dict string) (int, int, error) {
	i := strings.Index(dict, "'shape':")
	if i < 0 {
		return 0, 0, fmt.Errorf("header missing 'shape'")
	}
	rest := dict[i:]
	open := strings.Index(rest, "(")
	closing := strings.Index(rest, ")")
	if open < 0 || closing < 0 || closing < open {
		return 0, 0, fmt.Errorf("malformed 'shape'")
	}
	parts := strings.Split(rest[open+1:closing], ",")
	dims := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		d, err := strconv.Atoi(p)
		if err != nil {
			return 0, 0, fmt.Errorf("malformed shape dimension %q", p)
		}
		dims = append(dims, d)
	}
	if len(dims) != 2 {
		return 0, 0, fmt.Errorf("expected 2-D array, got %d dimensions", len(dims))
	}
	return dims[0], dims[1], nil
}
