package main

import (
	"fmt"
	"io"

	"github.com/samirrijal/geofencing/internal/adapters/valkey"
	"github.com/samirrijal/geofencing/internal/core/domain"
	"github.com/samirrijal/geofencing/internal/core/usecases"
)

// readExport decodes a savedItems export and converts every entry into the
// input RegionService.Add expects. Identifiers are not carried over.
func readExport(r io.Reader) ([]usecases.AddRegionInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	regions, err := valkey.DecodeRegions(data)
	if err != nil {
		return nil, err
	}
	inputs := make([]usecases.AddRegionInput, 0, len(regions))
	for _, reg := range regions {
		inputs = append(inputs, toInput(reg))
	}
	return inputs, nil
}

func toInput(r domain.Region) usecases.AddRegionInput {
	return usecases.AddRegionInput{
		Latitude:  r.Center.Lat,
		Longitude: r.Center.Lon,
		Radius:    r.Radius,
		Note:      r.Note,
		EventType: string(r.EventType),
	}
}
