package geo

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// File schema mirrors the administrative hierarchy: provinces nest districts,
// districts nest constituencies, constituencies nest wards.
type fileConfig struct {
	Provinces []provinceConfig `yaml:"provinces" validate:"required,min=1,dive"`
}

type provinceConfig struct {
	ID        string           `yaml:"id" validate:"required"`
	Name      string           `yaml:"name" validate:"required"`
	Code      string           `yaml:"code"`
	Districts []districtConfig `yaml:"districts" validate:"dive"`
}

type districtConfig struct {
	ID             string               `yaml:"id" validate:"required"`
	Name           string               `yaml:"name" validate:"required"`
	Code           string               `yaml:"code"`
	Constituencies []constituencyConfig `yaml:"constituencies" validate:"dive"`
}

type constituencyConfig struct {
	ID    string       `yaml:"id" validate:"required"`
	Name  string       `yaml:"name" validate:"required"`
	Code  string       `yaml:"code"`
	Wards []wardConfig `yaml:"wards" validate:"dive"`
}

type wardConfig struct {
	ID   string `yaml:"id" validate:"required"`
	Name string `yaml:"name" validate:"required"`
	Code string `yaml:"code"`
}

var titleCaser = cases.Title(language.English)

func canonicalName(name string) string {
	return titleCaser.String(collapseSpaces(name))
}

// LoadFile reads the geography tree from a YAML reference file.
func LoadFile(path string) ([]Node, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("geo: read %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("geo: parse %s: %w", path, err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvariant, path, err)
	}

	var nodes []Node
	for _, p := range cfg.Provinces {
		nodes = append(nodes, Node{ID: p.ID, Name: canonicalName(p.Name), Code: p.Code, Level: LevelProvince})
		for _, d := range p.Districts {
			nodes = append(nodes, Node{ID: d.ID, Name: canonicalName(d.Name), Code: d.Code, Level: LevelDistrict, ParentID: p.ID})
			for _, c := range d.Constituencies {
				nodes = append(nodes, Node{ID: c.ID, Name: canonicalName(c.Name), Code: c.Code, Level: LevelConstituency, ParentID: d.ID})
				for _, w := range c.Wards {
					nodes = append(nodes, Node{ID: w.ID, Name: canonicalName(w.Name), Code: w.Code, Level: LevelWard, ParentID: c.ID})
				}
			}
		}
	}
	return nodes, nil
}

// LoadPostgres reads the geography tree from the provinces, districts,
// constituencies and wards tables.
func LoadPostgres(ctx context.Context, pool *pgxpool.Pool) ([]Node, error) {
	var nodes []Node
	queries := []struct {
		level Level
		sql   string
	}{
		{LevelProvince, `SELECT id, name, code, '' FROM provinces ORDER BY name`},
		{LevelDistrict, `SELECT id, name, code, province_id FROM districts ORDER BY name`},
		{LevelConstituency, `SELECT id, name, code, district_id FROM constituencies ORDER BY name`},
		{LevelWard, `SELECT id, name, code, constituency_id FROM wards ORDER BY name`},
	}
	for _, q := range queries {
		rows, err := pool.Query(ctx, q.sql)
		if err != nil {
			return nil, fmt.Errorf("geo: load %s: %w", q.level, err)
		}
		for rows.Next() {
			var n Node
			n.Level = q.level
			if err := rows.Scan(&n.ID, &n.Name, &n.Code, &n.ParentID); err != nil {
				rows.Close()
				return nil, fmt.Errorf("geo: scan %s: %w", q.level, err)
			}
			n.Name = canonicalName(n.Name)
			nodes = append(nodes, n)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("geo: load %s: %w", q.level, err)
		}
	}
	return nodes, nil
}
