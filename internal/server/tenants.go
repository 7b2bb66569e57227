package server

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	hubservices "github.com/openmutual/hub/modules/hub/services"
)

type seedTenant struct {
	ID           string `yaml:"id"`
	AdminRole    string `yaml:"admin_role"`
	OperatorRole string `yaml:"operator_role"`
}

type tenantsFile struct {
	Version int          `yaml:"version"`
	Tenants []seedTenant `yaml:"tenants"`
}

func loadSeedTenants() ([]seedTenant, error) {
	path := os.Getenv("TENANTS_PATH")
	if path == "" {
		p, err := defaultTenantsPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tf tenantsFile
	if err := yaml.Unmarshal(b, &tf); err != nil {
		return nil, err
	}
	if tf.Version != 1 {
		return nil, errors.New("tenants: unsupported version")
	}
	for _, t := range tf.Tenants {
		if t.ID == "" || t.AdminRole == "" {
			return nil, errors.New("tenants: invalid tenant")
		}
	}
	return tf.Tenants, nil
}

// seedTenants registers the bootstrap tenants from config. Already-known
// tenants are skipped so restarts are idempotent.
func seedTenants(ctx context.Context, svc *hubservices.HubService, tenants []seedTenant) {
	for _, t := range tenants {
		if _, err := svc.GetTenant(ctx, t.ID); err == nil {
			continue
		}
		if err := svc.RegisterTenant(ctx, t.ID, t.AdminRole, t.OperatorRole); err != nil {
			log.Printf("hub: seed tenant %s failed: %v", t.ID, err)
		}
	}
}

func defaultTenantsPath() (string, error) {
	path := "config/tenants.yaml"
	for i := 0; i < 8; i++ {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("server: tenants config not found")
}
