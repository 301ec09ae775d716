package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

// SaveModel はモデルをgob形式でファイルに保存する
//
// パラメータ:
//   - model: 保存するモデル（GobEncoderを実装したポインタ）
//   - filename: 保存先のファイルパス
//
// 使用例:
//
//	forest := ensemble.NewRandomForestClassifier()
//	// ... モデルの学習 ...
//	err := model.SaveModel(forest, "forest.gob")
func SaveModel(model interface{}, filename string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to create file %s", filename)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "failed to close model file")
		}
	}()

	return SaveModelToWriter(model, file)
}

// LoadModel はファイルからモデルを読み込む
//
// 使用例:
//
//	forest := ensemble.NewRandomForestClassifier()
//	err := model.LoadModel(forest, "forest.gob")
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to open file %s", filename)
	}
	defer file.Close()

	return LoadModelFromReader(model, file)
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(model interface{}, w io.Writer) error {
	encoder := gob.NewEncoder(w)
	if err := encoder.Encode(model); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(model interface{}, r io.Reader) error {
	decoder := gob.NewDecoder(r)
	if err := decoder.Decode(model); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
