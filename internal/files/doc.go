// Package files finds the buildings of the input folder and manages the
// sample multi-building structure.
//
// Discovery: the input folder either holds the seven CSV files of a single
// building ("Default Building") or one subdirectory per building. Hidden
// entries are ignored and buildings come back in lexical order.
//
// Manager: file operations on the input folder, most notably
// CreateSampleStructure, which duplicates a single building into Building_A
// to Building_F after backing up the original files.
//
// Example usage:
//
//	discovery := files.NewDiscovery("test_app_data", logger)
//	buildings, err := discovery.Discover()
//	for _, b := range buildings {
//	    if !b.Complete() {
//	        // b.Missing lists the absent files
//	    }
//	}
package files
