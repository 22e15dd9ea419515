// Package dataprocessing loads the raw building CSV files into time-indexed
// frames and provides the frame operations the cooling analysis is built on.
//
// # Inputs
//
// A building directory holds seven files (see RequiredInputs). Time-series
// files have the timestamp in their first column followed by one column per
// zone or AHU. The zone map is a plain table with ZoneID and AHUID columns.
//
//	in, err := dataprocessing.LoadBuilding("test_app_data/Building_A")
//	if err != nil {
//	    return err
//	}
//
// # Frames
//
// A Frame stores its values in a gonum mat.Dense with NaN for missing
// values. Reindex, FFill, BFill and Select return new frames, so alignment
// chains read left to right:
//
//	aligned := in.IAT.Reindex(grid).FFill().BFill()
//
// Frames convert to and from domain.FrameData for storage and transport.
package dataprocessing
