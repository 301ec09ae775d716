package tree

import (
	"encoding/json"
	"io"

	scierrors "github.com/YuminosukeSato/scitree/pkg/errors"
)

// NodeJSON はノードのJSON表現です。葉では feature/threshold/left/right を省略します。
type NodeJSON struct {
	Feature   *int      `json:"feature,omitempty"`
	Threshold *float64  `json:"threshold,omitempty"`
	Impurity  float64   `json:"impurity"`
	Samples   int       `json:"samples"`
	Value     []int     `json:"value"`
	Class     int       `json:"class"`
	Left      *NodeJSON `json:"left,omitempty"`
	Right     *NodeJSON `json:"right,omitempty"`
}

// TreeJSON は学習済み決定木のJSON表現です（閲覧・デバッグ用）。
// 読み込みにはgobによる永続化を使用してください。
type TreeJSON struct {
	ModelType       string                 `json:"model_type"`
	Hyperparameters map[string]interface{} `json:"hyperparameters"`
	NClasses        int                    `json:"n_classes"`
	NFeatures       int                    `json:"n_features"`
	Depth           int                    `json:"depth"`
	Leaves          int                    `json:"leaves"`
	Root            *NodeJSON              `json:"root"`
}

func toNodeJSON(n *Node) *NodeJSON {
	out := &NodeJSON{
		Impurity: n.Impurity,
		Samples:  n.NSamples,
		Value:    append([]int(nil), n.ClassCounts...),
		Class:    n.PredictedClass,
	}
	if n.IsLeaf() {
		return out
	}
	feature, threshold := n.Feature, n.Threshold
	out.Feature = &feature
	out.Threshold = &threshold
	out.Left = toNodeJSON(n.Left)
	out.Right = toNodeJSON(n.Right)
	return out
}

// ExportJSON は学習済みの木を TreeJSON として返します。
func (dt *DecisionTreeClassifier) ExportJSON() (*TreeJSON, error) {
	params := dt.GetParams()

	dt.mu.RLock()
	defer dt.mu.RUnlock()

	if err := dt.state.RequireFitted(modelName, "ExportJSON"); err != nil {
		return nil, err
	}
	return &TreeJSON{
		ModelType:       modelName,
		Hyperparameters: params,
		NClasses:        dt.nClasses_,
		NFeatures:       dt.nFeatures_,
		Depth:           dt.depth_,
		Leaves:          dt.nLeaves_,
		Root:            toNodeJSON(dt.root),
	}, nil
}

// WriteJSON は学習済みの木をインデント付きJSONで w に書き出します。
func (dt *DecisionTreeClassifier) WriteJSON(w io.Writer) error {
	export, err := dt.ExportJSON()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(export); err != nil {
		return scierrors.Wrap(err, "failed to encode tree as JSON")
	}
	return nil
}
