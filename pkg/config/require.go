package config

import (
	"fmt"
	"log"
	"strings"
)

// Required pairs an env name with the value loaded for it.
type Required struct {
	Env   string
	Value string
}

// Check returns one error naming every empty variable.
func Check(reqs ...Required) error {
	var missing []string
	for _, r := range reqs {
		if strings.TrimSpace(r.Value) == "" {
			missing = append(missing, r.Env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env: %s", strings.Join(missing, ", "))
	}
	return nil
}

func MustNonEmpty(value, envName string) {
	if err := Check(Required{Env: envName, Value: value}); err != nil {
		log.Fatal(err)
	}
}
