package ml

import (
	"errors"
	"fmt"
)

// DecisionTree is a flattened binary tree; node 0 is the root.
type DecisionTree struct {
	features []string
	classes  []string
	nodes    []TreeNode
}

// TreeNode is one entry of the flattened tree. Leaves carry ClassLabel;
// internal nodes send x[FeatureIdx] <= Threshold to LeftChild.
type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	ClassLabel int     `json:"class_label"`
	IsLeaf     bool    `json:"is_leaf"`
}

type treeArtifact struct {
	Kind     string     `json:"kind"`
	Features []string   `json:"features,omitempty"`
	Classes  []string   `json:"classes,omitempty"`
	Nodes    []TreeNode `json:"nodes"`
}

func newDecisionTree(a treeArtifact) (*DecisionTree, error) {
	if len(a.Classes) == 0 {
		a.Classes = nil
	}
	if len(a.Nodes) == 0 {
		return nil, errors.New("decision_tree: no nodes")
	}
	for i, node := range a.Nodes {
		if node.IsLeaf {
			if a.Classes != nil && (node.ClassLabel < 0 || node.ClassLabel >= len(a.Classes)) {
				return nil, fmt.Errorf("decision_tree: node %d class %d has no name", i, node.ClassLabel)
			}
			continue
		}
		if node.FeatureIdx < 0 {
			return nil, fmt.Errorf("decision_tree: node %d has negative feature index", i)
		}
		if !validChild(node.LeftChild, len(a.Nodes)) || !validChild(node.RightChild, len(a.Nodes)) {
			return nil, fmt.Errorf("decision_tree: node %d has invalid children", i)
		}
	}
	return &DecisionTree{features: a.Features, classes: a.Classes, nodes: a.Nodes}, nil
}

// Predict walks from the root to a leaf.
func (dt *DecisionTree) Predict(features []float64) (ClassOutput, error) {
	if len(dt.nodes) == 0 {
		return ClassOutput{}, errors.New("model not loaded")
	}
	idx := 0
	for steps := 0; steps <= len(dt.nodes); steps++ {
		node := dt.nodes[idx]
		if node.IsLeaf {
			if dt.classes != nil {
				return Label(dt.classes[node.ClassLabel]), nil
			}
			return Index(node.ClassLabel), nil
		}
		if node.FeatureIdx >= len(features) {
			return ClassOutput{}, fmt.Errorf("feature index %d out of range for %d features", node.FeatureIdx, len(features))
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
	return ClassOutput{}, errors.New("invalid tree state")
}

// FeatureNames returns the training column order, if the artifact recorded one.
func (dt *DecisionTree) FeatureNames() []string {
	return append([]string(nil), dt.features...)
}

func validChild(idx, n int) bool {
	return idx > 0 && idx < n
}
