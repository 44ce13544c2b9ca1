package layout

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyColumn 表示对已耗尽的列调用了拟合。
	ErrEmptyColumn = errors.New("layout: 列为空")
	// ErrUnbalancedMarkup 表示强制闭合后花括号仍不平衡。
	ErrUnbalancedMarkup = errors.New("layout: 样式标记不平衡")
	// ErrUnknownColumn 表示无法识别的列名或列位置。
	ErrUnknownColumn = errors.New("layout: 未知的列")
	// ErrMeasurement 表示测量后端未能给出行数。
	ErrMeasurement = errors.New("layout: 测量失败")
	// ErrNoOracle 表示未注入测量后端。
	ErrNoOracle = errors.New("layout: 缺少测量后端 Oracle")
)

// InvariantError 记录违反不变式时所在的列与词序号。
type InvariantError struct {
	Column    Position
	WordIndex int
	Err       error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s 列第 %d 个词: %v", e.Column, e.WordIndex, e.Err)
}

func (e *InvariantError) Unwrap() error { return e.Err }

func invariant(col Position, index int, err error) error {
	return &InvariantError{Column: col, WordIndex: index, Err: err}
}
