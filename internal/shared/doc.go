// Package shared groups helpers that several packages of the cooling waste
// dashboard need but that belong to none of them.
//
// The testutil subpackage builds on-disk building fixtures (cooling, supply
// air and airflow CSV files) and captures slog output so tests can assert on
// structured log records:
//
//	func TestPreprocess(t *testing.T) {
//		input := t.TempDir()
//		testutil.WriteBuilding(t, filepath.Join(input, "Building_A"))
//		...
//	}
//
// Nothing in this package is imported by production code.
package shared
