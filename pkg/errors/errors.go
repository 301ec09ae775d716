// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// scikit-learnの警告・例外システムにインスパイアされており、構造化されたエラー情報を提供します。
//
// 全てのエラーは3つのカテゴリのいずれかにマークされます:
//   - ErrInvalidInput: 空データ、次元不一致、不正なラベルなど
//   - ErrNotFitted: 未学習モデルでの予測
//   - ErrInvalidConfiguration: 不正なハイパーパラメータ
//
// カテゴリは errors.Is で判定できます。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	エラーカテゴリ
//
// ===========================================================================

var (
	// ErrInvalidInput は入力データが不正な場合のカテゴリです。
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFitted はモデルが未学習の場合のカテゴリです。
	ErrNotFitted = errors.New("not fitted")

	// ErrInvalidConfiguration はハイパーパラメータが不正な場合のカテゴリです。
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEmptyData は空のデータが渡された場合のエラーです。
	// NewEmptyDataError で作成されたエラーは ErrInvalidInput にも該当します。
	ErrEmptyData = errors.New("empty data")
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("scitree-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
// nil を渡すと従来のハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが設定されている場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// OOBWarning は一部のサンプルがどの木でもout-of-bagにならなかった場合の警告です。
// 木の数が少ない場合に発生しやすく、OOBスコアはそれらのサンプルを除いて計算されます。
type OOBWarning struct {
	Unscored    int // OOB予測を持たないサンプル数
	NSamples    int
	NEstimators int
}

func (w *OOBWarning) Error() string {
	return fmt.Sprintf("%d of %d samples have no out-of-bag prediction with %d estimators; the OOB score excludes them",
		w.Unscored, w.NSamples, w.NEstimators)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *OOBWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Int("unscored", w.Unscored).
		Int("samples", w.NSamples).
		Int("estimators", w.NEstimators).
		Str("type", "OOBWarning")
}

// NewOOBWarning は新しいOOBWarningを作成します。
func NewOOBWarning(unscored, nSamples, nEstimators int) *OOBWarning {
	return &OOBWarning{Unscored: unscored, NSamples: nSamples, NEstimators: nEstimators}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Predict` などを呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("scitree: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(errors.Mark(err, ErrNotFitted))
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("scitree: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName(e.Axis), e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName(e.Axis)).
		Str("type", "DimensionError")
}

func axisName(axis int) string {
	if axis == 0 {
		return "rows"
	}
	return "features"
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(errors.Mark(err, ErrInvalidInput))
}

// ValidationError はハイパーパラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("scitree: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(errors.Mark(err, ErrInvalidConfiguration))
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
// 例えば、ラベルが整数でない場合や特徴量にNaNが含まれる場合など。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("scitree: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(errors.Mark(err, ErrInvalidInput))
}

// NewEmptyDataError は空の入力に対するValueErrorを作成します。
// ErrEmptyData と ErrInvalidInput の両方に該当します。
func NewEmptyDataError(op string) error {
	err := &ValueError{Op: op, Message: "empty data: at least one sample is required"}
	return errors.WithStack(errors.Mark(errors.Mark(err, ErrEmptyData), ErrInvalidInput))
}

// ModelError は機械学習モデルに関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scitree: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("scitree: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// ===========================================================================
//
//	カテゴリ判定
//
// ===========================================================================

// IsInvalidInput はエラーが入力データ不正カテゴリに属するかを判定します。
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNotFitted はエラーが未学習カテゴリに属するかを判定します。
func IsNotFitted(err error) bool {
	return errors.Is(err, ErrNotFitted)
}

// IsInvalidConfiguration はエラーが設定不正カテゴリに属するかを判定します。
func IsInvalidConfiguration(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}
