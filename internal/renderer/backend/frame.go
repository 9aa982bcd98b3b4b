package backend

import "github.com/dshills/marginalia/internal/renderer/core"

// Frame is an off-screen staging area for one rectangular surface.
//
// Surfaces compose into the back buffer and call Commit only after the
// whole frame was produced, so a failed draw leaves the previously
// committed content on screen. Commit writes only the cells that changed
// since the last commit.
type Frame struct {
	rect  core.ScreenRect
	front [][]core.Cell
	back  [][]core.Cell
	full  bool
}

// NewFrame creates a frame covering rect.
func NewFrame(rect core.ScreenRect) *Frame {
	f := &Frame{}
	f.Resize(rect)
	return f
}

// Rect returns the screen region the frame covers.
func (f *Frame) Rect() core.ScreenRect {
	return f.rect
}

// Resize moves or resizes the frame. The next commit redraws every cell.
func (f *Frame) Resize(rect core.ScreenRect) {
	if rect == f.rect && f.back != nil {
		return
	}
	f.rect = rect
	f.front = allocCells(rect.Width(), rect.Height())
	f.back = allocCells(rect.Width(), rect.Height())
	f.full = true
}

func allocCells(w, h int) [][]core.Cell {
	rows := make([][]core.Cell, h)
	for y := range rows {
		rows[y] = make([]core.Cell, w)
		for x := range rows[y] {
			rows[y][x] = core.EmptyCell()
		}
	}
	return rows
}

// Reset fills the back buffer with cell.
func (f *Frame) Reset(cell core.Cell) {
	for y := range f.back {
		for x := range f.back[y] {
			f.back[y][x] = cell
		}
	}
}

// Set stages a cell at frame-relative col, row. Out-of-range cells are
// ignored.
func (f *Frame) Set(col, row int, cell core.Cell) {
	if row < 0 || row >= len(f.back) || col < 0 || col >= len(f.back[row]) {
		return
	}
	f.back[row][col] = cell
}

// Get returns the staged cell at frame-relative col, row.
func (f *Frame) Get(col, row int) core.Cell {
	if row < 0 || row >= len(f.back) || col < 0 || col >= len(f.back[row]) {
		return core.EmptyCell()
	}
	return f.back[row][col]
}

// Discard drops staged changes, restoring the last committed content.
func (f *Frame) Discard() {
	for y := range f.back {
		copy(f.back[y], f.front[y])
	}
}

// Commit writes changed cells to b and returns how many were written.
func (f *Frame) Commit(b Backend) int {
	written := 0
	for y := range f.back {
		for x := range f.back[y] {
			cell := f.back[y][x]
			if !f.full && cell.Equals(f.front[y][x]) {
				continue
			}
			b.SetCell(f.rect.Left+x, f.rect.Top+y, cell)
			f.front[y][x] = cell
			written++
		}
	}
	f.full = false
	return written
}

// Invalidate forces the next commit to redraw every cell.
func (f *Frame) Invalidate() {
	f.full = true
}
