package satprep

// Detector data config generation.

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// dataConfig is the training data configuration consumed by the detector framework. Field order
// matters to keep the emitted file stable across runs.
type dataConfig struct {
	Path  string   `yaml:"path"`
	Train string   `yaml:"train"`
	Val   string   `yaml:"val"`
	Test  string   `yaml:"test,omitempty"`
	NC    int      `yaml:"nc"`
	Names []string `yaml:"names"`
}

// WriteDataYAML writes the detector data configuration to outPath, referencing the train, val
// and optional test image directories (testDir may be empty) and the class names of the given
// taxonomy. Directory paths are made absolute so training can run from any working directory.
func WriteDataYAML(outPath, trainDir, valDir, testDir string, classes ClassMap) error {
	absRoot, err := filepath.Abs(filepath.Dir(outPath))
	if err != nil {
		return err
	}
	absTrain, err := filepath.Abs(trainDir)
	if err != nil {
		return err
	}
	absVal, err := filepath.Abs(valDir)
	if err != nil {
		return err
	}

	config := dataConfig{
		Path:  absRoot,
		Train: absTrain,
		Val:   absVal,
		NC:    classes.Len(),
		Names: classes.Names(),
	}
	if testDir != "" {
		if config.Test, err = filepath.Abs(testDir); err != nil {
			return err
		}
	}

	enc, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, enc, 0644); err != nil {
		return fmt.Errorf("cannot write data config %q: %v", outPath, err)
	}

	log.Printf("Wrote data config for %d classes to %s", classes.Len(), outPath)
	return nil
}
