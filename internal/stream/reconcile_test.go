package stream

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const reconcileFile = `package main

func add(a, b int) int {
	return a + b
}

func sub(a, b int) int {
	return a - b
}
`

func TestReconcileKeepsExactMatch(t *testing.T) {
	fm := FileModification{
		Filename: "math.go",
		Changes: []Change{{
			Original: "return a + b",
			Modified: "return a + b + 1",
		}},
	}
	got := Reconcile(reconcileFile, fm)
	require.Equal(t, fm.Changes, got.Changes)
}

func TestReconcileDropsAlreadyApplied(t *testing.T) {
	fm := FileModification{
		Filename: "math.go",
		Changes: []Change{{
			Original: "return a * b",
			Modified: "return a - b",
		}},
	}
	got := Reconcile(reconcileFile, fm)
	require.Empty(t, got.Changes)
}

func TestReconcileRemapsDriftedOriginal(t *testing.T) {
	// The payload was produced before a rename drifted one line.
	fm := FileModification{
		Filename: "math.go",
		Changes: []Change{{
			Original: "func sub(x, b int) int {\n\treturn x - b\n}\n",
			Modified: "func sub(a, b int) int {\n\treturn b - a\n}\n",
		}},
	}
	got := Reconcile(reconcileFile, fm)
	require.Len(t, got.Changes, 1)
	require.Equal(t, "func sub(a, b int) int {\n\treturn a - b\n}\n", got.Changes[0].Original)
	require.Equal(t, fm.Changes[0].Modified, got.Changes[0].Modified)
}

func TestReconcileDropsUnrelatedOriginal(t *testing.T) {
	fm := FileModification{
		Filename: "math.go",
		Changes: []Change{{
			Original: "completely unrelated text that matches nothing here\n",
			Modified: "whatever\n",
		}},
	}
	got := Reconcile(reconcileFile, fm)
	require.Empty(t, got.Changes)
}

func TestReconcileAgainstKeepsAndDrops(t *testing.T) {
	fm := FileModification{
		Filename: "math.go",
		Changes: []Change{
			{Original: "return a + b", Modified: "return a + b + 1"},
			{Original: "return a * b", Modified: "return a - b"},
		},
	}
	got := ReconcileAgainst(reconcileFile, reconcileFile, fm)
	require.Len(t, got.Changes, 1)
	require.Equal(t, fm.Changes[0], got.Changes[0])
}

func TestReconcileAgainstMapsThroughDiff(t *testing.T) {
	original := "alpha()\nbeta()\ngamma()\n"
	// The middle line drifted far past any similarity window, so only the
	// line diff against the original can place the change.
	current := "alpha()\nrunQueuedJobs(queue, 42)\ngamma()\n"
	fm := FileModification{
		Filename: "a.js",
		Changes:  []Change{{Original: "beta()\n", Modified: "beta(log)\n"}},
	}

	got := ReconcileAgainst(original, current, fm)
	require.Len(t, got.Changes, 1)
	require.Equal(t, "runQueuedJobs(queue, 42)\n", got.Changes[0].Original)
	require.Equal(t, "beta(log)\n", got.Changes[0].Modified)

	// Without the original the stale snippet is unplaceable and dropped.
	require.Empty(t, Reconcile(current, fm).Changes)
}

func TestReconcileAgainstSurvivesInsertedLines(t *testing.T) {
	original := "a()\nb()\nc()\n"
	// A header pushed every line down and the target line was rewritten.
	current := "// header\na()\ntotallyRewritten(7)\nc()\n"
	fm := FileModification{
		Filename: "a.js",
		Changes:  []Change{{Original: "b()\n", Modified: "b(1)\n"}},
	}
	got := ReconcileAgainst(original, current, fm)
	require.Len(t, got.Changes, 1)
	require.Equal(t, "totallyRewritten(7)\n", got.Changes[0].Original)
}

func TestReconcileAgainstFallsBackToSimilarity(t *testing.T) {
	// Snippet absent from the supplied original, so the diff cannot place it
	// and the similarity pass takes over.
	fm := FileModification{
		Filename: "math.go",
		Changes: []Change{{
			Original: "func sub(x, b int) int {\n\treturn x - b\n}\n",
			Modified: "func sub(a, b int) int {\n\treturn b - a\n}\n",
		}},
	}
	got := ReconcileAgainst("unrelated original\n", reconcileFile, fm)
	require.Len(t, got.Changes, 1)
	require.Equal(t, "func sub(a, b int) int {\n\treturn a - b\n}\n", got.Changes[0].Original)
}

func TestApply(t *testing.T) {
	fm := FileModification{
		Filename: "math.go",
		Changes: []Change{
			{Original: "return a + b", Modified: "return b + a"},
			{Original: "return a - b", Modified: "return -(b - a)"},
		},
	}
	got, err := Apply(reconcileFile, fm)
	require.NoError(t, err)
	require.Contains(t, got, "return b + a")
	require.Contains(t, got, "return -(b - a)")
	require.NotContains(t, got, "return a + b")
}

func TestApplyMissingOriginal(t *testing.T) {
	fm := FileModification{
		Filename: "math.go",
		Changes:  []Change{{Original: "nope", Modified: "x"}},
	}
	_, err := Apply(reconcileFile, fm)
	require.ErrorContains(t, err, "original snippet not found")
}
