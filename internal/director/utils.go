package director

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ivlev/verse2video/internal/system"
)

// DefaultPlanDir is where dry runs drop their plans.
var DefaultPlanDir = filepath.Join("output", "plans")

// GeneratePlanPath creates a timestamped plan filename inside dir
func GeneratePlanPath(dir string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("plan_%s.yaml", timestamp))
}

// FindLatestPlan finds the most recent plan file in dir
func FindLatestPlan(dir string) (string, error) {
	return system.FindLatestFile(dir, []string{".yaml", ".yml"})
}
