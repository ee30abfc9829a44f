package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionTreeLabels(t *testing.T) {
	tree, err := newDecisionTree(treeArtifact{
		Kind:     "decision_tree",
		Features: []string{"Area", "Perimeter"},
		Classes:  []string{"Ürgüp Sivrisi", "Çerçevelik"},
		Nodes: []TreeNode{
			{FeatureIdx: 0, Threshold: 80000, LeftChild: 1, RightChild: 2},
			{FeatureIdx: -1, LeftChild: -1, RightChild: -1, ClassLabel: 1, IsLeaf: true},
			{FeatureIdx: -1, LeftChild: -1, RightChild: -1, ClassLabel: 0, IsLeaf: true},
		},
	})
	require.NoError(t, err)

	got, err := tree.Predict([]float64{56276, 888})
	require.NoError(t, err)
	assert.Equal(t, Label("Çerçevelik"), got)

	got, err = tree.Predict([]float64{95000, 1200})
	require.NoError(t, err)
	assert.Equal(t, Label("Ürgüp Sivrisi"), got)

	names := tree.FeatureNames()
	names[0] = "changed"
	assert.Equal(t, []string{"Area", "Perimeter"}, tree.FeatureNames())
}

func TestDecisionTreeCycle(t *testing.T) {
	tree, err := newDecisionTree(treeArtifact{Nodes: []TreeNode{
		{FeatureIdx: 0, LeftChild: 1, RightChild: 1},
		{FeatureIdx: 0, LeftChild: 1, RightChild: 1},
	}})
	require.NoError(t, err)

	_, err = tree.Predict([]float64{1})
	assert.EqualError(t, err, "invalid tree state")
}
