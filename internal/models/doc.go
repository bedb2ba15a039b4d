// package models defines the data model for the music discovery core: seeds,
// candidates, match results, sync targets, and run summaries.
package models
