// Package analysis computes how much of a building's cooling energy is spent
// on each zone and in which comfort band that energy lands.
//
// The pipeline for one building is:
//
//  1. FilterZones drops zones whose median temperature is implausible.
//  2. ZonalCooling splits the building cooling across zones in proportion
//     to (zone temperature - discharge temperature) * airflow.
//  3. CategorizeBins sums the zonal cooling into six bins relative to the
//     heating and cooling setpoints.
//  4. Resample aggregates the bins hourly, daily, weekly or monthly.
//  5. TopWasteful and TopDemanding rank the zones.
//
// ProcessBuilding runs the whole pipeline and Batch runs it for many
// buildings concurrently.
package analysis
