// seed_catalog.go: standalone script that loads reference catalogs and a weight
// configuration from a scenario YAML and pushes them through the Prioritize API.
//
// Usage:
//
//	go run scripts/seed_catalog.go -file scenario.yaml -api http://localhost:8700 -token $PRIORITIZE_ADMIN_TOKEN
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"gopkg.in/yaml.v3"
)

type conservationState struct {
	ID                      string  `yaml:"id" json:"id"`
	Label                   string  `yaml:"label" json:"label"`
	PhysicalCondition       string  `yaml:"physical_condition" json:"physical_condition,omitempty"`
	Classification          string  `yaml:"classification" json:"classification,omitempty"`
	DepreciationCoefficient float64 `yaml:"depreciation_coefficient" json:"depreciation_coefficient"`
}

type component struct {
	ID            string  `yaml:"id" json:"id"`
	Name          string  `yaml:"name" json:"name"`
	NominalWeight float64 `yaml:"nominal_weight" json:"nominal_weight"`
}

type serviceabilityState struct {
	ID     string  `yaml:"id" json:"id"`
	Label  string  `yaml:"label" json:"label"`
	Points float64 `yaml:"points" json:"points"`
}

type catalogs struct {
	ConservationStates []conservationState `yaml:"conservation_states" json:"conservation_states"`
	Components         []component         `yaml:"components" json:"components"`
	Serviceability     struct {
		Functionality []serviceabilityState `yaml:"functionality" json:"functionality"`
		Normative     []serviceabilityState `yaml:"normative" json:"normative"`
	} `yaml:"serviceability" json:"serviceability"`
}

type configuration struct {
	Version string `yaml:"version" json:"version,omitempty"`
	Axes    []struct {
		ID            string  `yaml:"id" json:"id"`
		Name          string  `yaml:"name" json:"name"`
		WeightPercent float64 `yaml:"weight_percent" json:"weight_percent"`
	} `yaml:"axes" json:"axes"`
	Criteria []struct {
		ID            string  `yaml:"id" json:"id"`
		AxisID        string  `yaml:"axis_id" json:"axis_id"`
		Name          string  `yaml:"name" json:"name"`
		WeightPercent float64 `yaml:"weight_percent" json:"weight_percent"`
	} `yaml:"criteria" json:"criteria"`
	Parameters []struct {
		ID          string  `yaml:"id" json:"id"`
		CriterionID string  `yaml:"criterion_id" json:"criterion_id"`
		Label       string  `yaml:"label" json:"label"`
		Value       float64 `yaml:"value" json:"value"`
	} `yaml:"parameters" json:"parameters"`
}

type seedFile struct {
	Catalogs      *catalogs      `yaml:"catalogs"`
	Configuration *configuration `yaml:"configuration"`
}

func main() {
	path := flag.String("file", "scenario.yaml", "path to scenario YAML with catalogs and configuration")
	apiURL := flag.String("api", "http://localhost:8700", "Prioritize API base URL")
	token := flag.String("token", os.Getenv("PRIORITIZE_ADMIN_TOKEN"), "admin bearer token")
	userID := flag.String("user", "seed", "X-User-ID header value")
	dryRun := flag.Bool("dry-run", false, "print what would be sent without posting")
	flag.Parse()

	data, err := os.ReadFile(*path)
	if err != nil {
		log.Fatalf("read %s: %v", *path, err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		log.Fatalf("parse %s: %v", *path, err)
	}

	if seed.Catalogs != nil {
		log.Printf("catalogs: %d conservation states, %d components, %d functionality, %d normative",
			len(seed.Catalogs.ConservationStates), len(seed.Catalogs.Components),
			len(seed.Catalogs.Serviceability.Functionality), len(seed.Catalogs.Serviceability.Normative))
	}
	if seed.Configuration != nil {
		log.Printf("configuration: %d axes, %d criteria, %d parameters",
			len(seed.Configuration.Axes), len(seed.Configuration.Criteria), len(seed.Configuration.Parameters))
	}
	if *dryRun {
		return
	}

	client := &http.Client{}
	put := func(route string, body interface{}) {
		payload, _ := json.Marshal(body)
		req, err := http.NewRequest("PUT", *apiURL+route, bytes.NewReader(payload))
		if err != nil {
			log.Fatalf("%s: %v", route, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-ID", *userID)
		if *token != "" {
			req.Header.Set("Authorization", "Bearer "+*token)
		}

		resp, err := client.Do(req)
		if err != nil {
			log.Fatalf("%s: %v", route, err)
		}
		defer resp.Body.Close()

		var out map[string]interface{}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		if resp.StatusCode != http.StatusOK {
			log.Fatalf("%s: status %d: %v", route, resp.StatusCode, out["error"])
		}
		if warnings, ok := out["warnings"].([]interface{}); ok && len(warnings) > 0 {
			for _, w := range warnings {
				fmt.Printf("warning: %v\n", w)
			}
		}
		log.Printf("%s: ok", route)
	}

	if seed.Catalogs != nil {
		put("/api/v1/catalogs", seed.Catalogs)
	}
	if seed.Configuration != nil {
		put("/api/v1/configuration", seed.Configuration)
	}
}
