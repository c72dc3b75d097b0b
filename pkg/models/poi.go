package models

import "github.com/google/uuid"

// Terrain is the POI's terrain classification, which drives the
// element-by-terrain roll table (spec §6.2).
type Terrain string

const (
	TerrainWater    Terrain = "water"
	TerrainMountain Terrain = "mountain"
	TerrainUrban    Terrain = "urban"
	TerrainForest   Terrain = "forest"
	TerrainDesert   Terrain = "desert"
	TerrainCoastal  Terrain = "coastal"
	TerrainArctic   Terrain = "arctic"
)

// POI is a static, read-only-to-the-core point of interest seed record.
type POI struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	RadiusM     float64   `json:"radiusM"`
	SpawnWeight float64   `json:"spawnWeight"`
	Terrain     Terrain   `json:"terrain"`
	IsActive    bool      `json:"isActive"`
}
