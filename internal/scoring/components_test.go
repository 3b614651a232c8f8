package scoring

import (
	"errors"
	"math"
	"testing"
)

func testCatalog() []Component {
	return []Component{
		{ID: "structure", Name: "Estructura", NominalWeight: 50},
		{ID: "roof", Name: "Cubierta", NominalWeight: 30},
		{ID: "elevators", Name: "Ascensores", NominalWeight: 20},
	}
}

func TestComputeComponentScore(t *testing.T) {
	ratings := []ComponentRating{
		{ComponentID: "structure", Exists: true, InterventionNeed: 40},
		{ComponentID: "roof", Exists: true, InterventionNeed: 100},
		{ComponentID: "elevators", Exists: false, InterventionNeed: 90},
	}
	r, err := ComputeComponentScore(testCatalog(), ratings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(r.PresentWeight-0.8) > 1e-9 {
		t.Errorf("present weight: got %f, want 0.8", r.PresentWeight)
	}
	want := map[string]struct{ redistributed, score float64 }{
		"structure": {62.5, 0.25},
		"roof":      {37.5, 0.375},
		"elevators": {0, 0},
	}
	for id, w := range want {
		got, ok := r.PerComponent[id]
		if !ok {
			t.Fatalf("missing per-component entry %s", id)
		}
		if math.Abs(got.RedistributedWeight-w.redistributed) > 1e-9 {
			t.Errorf("%s redistributed: got %f, want %f", id, got.RedistributedWeight, w.redistributed)
		}
		if math.Abs(got.Score-w.score) > 1e-9 {
			t.Errorf("%s score: got %f, want %f", id, got.Score, w.score)
		}
	}
	if math.Abs(r.Total-0.625) > 1e-9 {
		t.Errorf("total: got %f, want 0.625", r.Total)
	}
}

func TestComponentWeightConservation(t *testing.T) {
	catalog := []Component{
		{ID: "a", NominalWeight: 12.5},
		{ID: "b", NominalWeight: 7.5},
		{ID: "c", NominalWeight: 33},
		{ID: "d", NominalWeight: 21},
		{ID: "e", NominalWeight: 26},
	}
	// Every non-empty subset of present components.
	for mask := 1; mask < 1<<len(catalog); mask++ {
		ratings := make([]ComponentRating, len(catalog))
		for i, c := range catalog {
			ratings[i] = ComponentRating{ComponentID: c.ID, Exists: mask&(1<<i) != 0, InterventionNeed: 50}
		}
		r, err := ComputeComponentScore(catalog, ratings)
		if err != nil {
			t.Fatalf("mask %b: unexpected error: %v", mask, err)
		}
		var sum float64
		for _, c := range r.PerComponent {
			sum += c.RedistributedWeight
		}
		if math.Abs(sum-100) > 1e-9 {
			t.Errorf("mask %b: redistributed weights sum to %f, want 100", mask, sum)
		}
		// Uniform need of 50% always yields 0.5 once weights are conserved.
		if math.Abs(r.Total-0.5) > 1e-9 {
			t.Errorf("mask %b: total %f, want 0.5", mask, r.Total)
		}
	}
}

func TestComputeComponentScoreNonePresent(t *testing.T) {
	ratings := []ComponentRating{
		{ComponentID: "structure", Exists: false},
		{ComponentID: "roof", Exists: false},
		{ComponentID: "elevators", Exists: false},
	}
	_, err := ComputeComponentScore(testCatalog(), ratings)
	var npe *NoComponentsPresentError
	if !errors.As(err, &npe) {
		t.Fatalf("expected *NoComponentsPresentError, got %v", err)
	}
	if !errors.Is(err, ErrComputation) {
		t.Error("expected error to match ErrComputation")
	}
	if npe.CatalogSize != 3 {
		t.Errorf("expected catalog size 3, got %d", npe.CatalogSize)
	}
}

func TestComputeComponentScoreRequiresFullCatalog(t *testing.T) {
	tests := []struct {
		name    string
		ratings []ComponentRating
	}{
		{"missing component", []ComponentRating{
			{ComponentID: "structure", Exists: true, InterventionNeed: 10},
			{ComponentID: "roof", Exists: true, InterventionNeed: 10},
		}},
		{"unknown component", []ComponentRating{
			{ComponentID: "structure", Exists: true},
			{ComponentID: "roof", Exists: true},
			{ComponentID: "elevators", Exists: true},
			{ComponentID: "pool", Exists: true},
		}},
		{"duplicate rating", []ComponentRating{
			{ComponentID: "structure", Exists: true},
			{ComponentID: "structure", Exists: true},
			{ComponentID: "roof", Exists: true},
			{ComponentID: "elevators", Exists: true},
		}},
		{"need out of range", []ComponentRating{
			{ComponentID: "structure", Exists: true, InterventionNeed: 120},
			{ComponentID: "roof", Exists: true},
			{ComponentID: "elevators", Exists: true},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ComputeComponentScore(testCatalog(), tt.ratings); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestValidateComponentCatalog(t *testing.T) {
	if err := ValidateComponentCatalog(testCatalog(), DefaultTolerance); err != nil {
		t.Errorf("expected valid catalog, got %v", err)
	}
	bad := append(testCatalog(), Component{ID: "extra", NominalWeight: 5})
	if err := ValidateComponentCatalog(bad, DefaultTolerance); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for catalog summing to 105, got %v", err)
	}
}

func TestComputeComponentScoreRejectsUnbalancedCatalog(t *testing.T) {
	catalog := testCatalog()
	catalog[2].NominalWeight = 10
	ratings := []ComponentRating{
		{ComponentID: "structure", Exists: true, InterventionNeed: 40},
		{ComponentID: "roof", Exists: true, InterventionNeed: 20},
		{ComponentID: "elevators", Exists: true, InterventionNeed: 10},
	}
	_, err := ComputeComponentScore(catalog, ratings)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for a catalog summing to 90, got %v", err)
	}
}
