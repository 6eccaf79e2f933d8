// Package seed loads default classifications, settings and the first
// administrator from a YAML file. Applying a seed twice changes nothing.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/repository"
	"github.com/eventdesk/eventdesk/pkg/logger"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

type Classification struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Hotkey      int    `yaml:"hotkey"`
	Locked      bool   `yaml:"locked"`
}

// Admin is created only while the user table is empty
type Admin struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
}

type File struct {
	Classifications []Classification `yaml:"classifications"`
	// Settings are written only when absent so edits made in the console survive restarts
	Settings map[string]string `yaml:"settings"`
	Admin    *Admin            `yaml:"admin"`
}

// Load reads a seed file; a missing file yields an empty seed
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("Seed file not found, skipping", map[string]interface{}{"path": path})
			return &File{}, nil
		}
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	for i, c := range f.Classifications {
		if c.Name == "" {
			return nil, fmt.Errorf("classification %d has no name", i+1)
		}
	}
	if f.Admin != nil && (f.Admin.Email == "" || f.Admin.Password == "") {
		return nil, errors.New("admin seed needs an email and a password")
	}
	return &f, nil
}

// Apply writes the seed in one transaction
func Apply(ctx context.Context, db *gorm.DB, f *File) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		classifications := repository.NewClassificationRepository(tx)
		for _, c := range f.Classifications {
			row := &models.Classification{
				Name:        c.Name,
				Description: c.Description,
				Hotkey:      c.Hotkey,
				Locked:      c.Locked,
			}
			if err := classifications.Upsert(ctx, row); err != nil {
				return fmt.Errorf("seeding classification %q: %w", c.Name, err)
			}
		}

		settings := repository.NewSettingRepository(tx)
		for name, value := range f.Settings {
			_, ok, err := settings.Get(ctx, name)
			if err != nil {
				return err
			}
			if ok {
				continue
			}
			if err := settings.Set(ctx, name, value); err != nil {
				return fmt.Errorf("seeding setting %q: %w", name, err)
			}
		}

		if f.Admin != nil {
			if err := seedAdmin(ctx, repository.NewUserRepository(tx), f.Admin); err != nil {
				return err
			}
		}
		return nil
	})
}

func seedAdmin(ctx context.Context, users *repository.UserRepository, a *Admin) error {
	count, err := users.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	name := a.Name
	if name == "" {
		name = a.Email
	}
	user := &models.User{Email: a.Email, Name: name, Admin: true, Enabled: true}
	if err := user.SetPassword(a.Password); err != nil {
		return err
	}
	if err := users.Create(ctx, user); err != nil {
		return fmt.Errorf("seeding admin %q: %w", a.Email, err)
	}
	logger.Info("Created initial administrator", map[string]interface{}{"email": a.Email})
	return nil
}
