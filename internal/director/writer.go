package director

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WritePlan writes a plan to a YAML file
func WritePlan(plan *Plan, path string) error {
	data, err := yaml.Marshal(plan)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadPlan reads a plan from a YAML file. Frame offsets are recomputed from
// the holds, so a hand-edited plan only needs its texts and holds right.
func ReadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, err
	}

	if plan.FPS <= 0 {
		return nil, fmt.Errorf("plan %s: fps must be positive", path)
	}
	for _, c := range plan.Cues() {
		if c.Hold < 1 {
			return nil, fmt.Errorf("plan %s: line %d state %d has hold %d", path, c.Line, c.State, c.Hold)
		}
	}

	plan.retime()
	return &plan, nil
}
