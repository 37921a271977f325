package main

import (
	"log"
	"os"
	"path/filepath"

	engine "github.com/strategraph-lab/strategraph/internal/engine/engine_v1"
	"github.com/strategraph-lab/strategraph/internal/graph"
	"github.com/strategraph-lab/strategraph/internal/logger"
	"github.com/strategraph-lab/strategraph/internal/types"
	"gopkg.in/yaml.v2"
)

func main() {
	// Create a config instance
	config := engine.EmptyConfig()

	// Generate schema JSON
	schemaJSON, err := config.GenerateSchemaJSON()
	if err != nil {
		log.Fatalf("Failed to generate schema: %v", err)
	}

	graphSchemaJSON, err := graph.GenerateSchemaJSON()
	if err != nil {
		log.Fatalf("Failed to generate graph schema: %v", err)
	}

	// Set the output paths
	schemaName := "eval-engine-v1-config.json"
	schemaPath := filepath.Join("./config", schemaName)
	sampleConfigPath := filepath.Join("./config", "eval-engine-v1-config.yaml")
	graphSchemaPath := filepath.Join("./config", "strategy-graph.json")
	sampleGraphPath := filepath.Join("./config", "sample-strategy.json")

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(schemaPath), 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	// Write schemas to file
	err = os.WriteFile(schemaPath, []byte(schemaJSON), 0644)
	if err != nil {
		log.Fatalf("Failed to write schema to file: %v", err)
	}

	err = os.WriteFile(graphSchemaPath, []byte(graphSchemaJSON), 0644)
	if err != nil {
		log.Fatalf("Failed to write graph schema to file: %v", err)
	}

	// write sample config to file if doesn't exist
	// yaml marshal
	if _, err := os.Stat(sampleConfigPath); os.IsNotExist(err) {
		yamlBytes, err := yaml.Marshal(config)
		// add # yaml-language-server: $schema=./eval-engine-v1-config.json to the beginning of the file
		yamlBytes = append([]byte("# yaml-language-server: $schema="+schemaName+"\n"), yamlBytes...)
		if err != nil {
			log.Fatalf("Failed to marshal sample config to yaml: %v", err)
		}
		err = os.WriteFile(sampleConfigPath, yamlBytes, 0644)
		if err != nil {
			log.Fatalf("Failed to write sample config to file: %v", err)
		}
		log.Printf("Sample config successfully generated at %s", sampleConfigPath)
	}

	// write a sample strategy graph if doesn't exist
	if _, err := os.Stat(sampleGraphPath); os.IsNotExist(err) {
		graphJSON, err := sampleGraph()
		if err != nil {
			log.Fatalf("Failed to build sample graph: %v", err)
		}
		err = os.WriteFile(sampleGraphPath, graphJSON, 0644)
		if err != nil {
			log.Fatalf("Failed to write sample graph to file: %v", err)
		}
		log.Printf("Sample graph successfully generated at %s", sampleGraphPath)
	}

	log.Printf("Schema successfully generated at %s", schemaPath)
	log.Printf("Graph schema successfully generated at %s", graphSchemaPath)
}

// sampleGraph builds an RSI oversold strategy: buy when RSI(14) drops
// below 30.
func sampleGraph() ([]byte, error) {
	store := graph.NewStore(graph.NewCatalog(), logger.NewNopLogger())

	trigger, err := store.AddNode(graph.KindTimeTrigger, types.Position{X: 0, Y: 0})
	if err != nil {
		return nil, err
	}

	rsi, err := store.AddNode(graph.KindRSI, types.Position{X: 220, Y: 0})
	if err != nil {
		return nil, err
	}

	threshold, err := store.AddNode(graph.KindConstant, types.Position{X: 220, Y: 140})
	if err != nil {
		return nil, err
	}
	if err := store.UpdateConfig(threshold.ID, map[string]types.ConfigValue{
		"value": types.NumberConfig(30),
	}); err != nil {
		return nil, err
	}

	compare, err := store.AddNode(graph.KindCompareLT, types.Position{X: 440, Y: 0})
	if err != nil {
		return nil, err
	}

	buy, err := store.AddNode(graph.KindBuyMarket, types.Position{X: 660, Y: 0})
	if err != nil {
		return nil, err
	}

	if _, err := store.Connect(trigger.ID, "OnTick", rsi.ID, "Source"); err != nil {
		return nil, err
	}
	if _, err := store.Connect(rsi.ID, "Value", compare.ID, "A"); err != nil {
		return nil, err
	}
	if _, err := store.Connect(threshold.ID, "Value", compare.ID, "B"); err != nil {
		return nil, err
	}
	if _, err := store.Connect(compare.ID, "True", buy.ID, "Signal"); err != nil {
		return nil, err
	}

	return graph.Marshal(store.Graph())
}
