package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])
	assert.True(t, names["export"])
	assert.NotNil(t, root.RunE)
}

func TestMigrateRequiresOneArgument(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"migrate"})
	err := root.Execute()
	require.Error(t, err)
}

func TestExportRequiresFlags(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"export", "--conversation", "1"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user")
}
