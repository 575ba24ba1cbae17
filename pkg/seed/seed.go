package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"liyu1981.xyz/battery-rental-service/pkg/common"
	"liyu1981.xyz/battery-rental-service/pkg/geo"
	"liyu1981.xyz/battery-rental-service/pkg/models"
)

// Catalog is the YAML layout of a seed file.
type Catalog struct {
	Categories []Category `yaml:"categories"`
	Stations   []Station  `yaml:"stations"`
}

type Category struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
	Types       []Type `yaml:"types"`
}

type Type struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Batteries   []Battery `yaml:"batteries"`
}

type Battery struct {
	Name            string   `yaml:"name"`
	SerialNumber    string   `yaml:"serial_number"`
	CapacityAh      float64  `yaml:"capacity_ah"`
	VoltageV        float64  `yaml:"voltage_v"`
	PowerW          float64  `yaml:"power_w"`
	WeightKg        float64  `yaml:"weight_kg"`
	DailyPriceCents int64    `yaml:"daily_price_cents"`
	DepositCents    int64    `yaml:"deposit_cents"`
	Location        string   `yaml:"location"`
	Latitude        *float64 `yaml:"latitude"`
	Longitude       *float64 `yaml:"longitude"`
}

type Station struct {
	Name             string  `yaml:"name"`
	Address          string  `yaml:"address"`
	Phone            string  `yaml:"phone"`
	Latitude         float64 `yaml:"latitude"`
	Longitude        float64 `yaml:"longitude"`
	Description      string  `yaml:"description"`
	BusinessHours    string  `yaml:"business_hours"`
	MaxBatteries     int     `yaml:"max_batteries"`
	CurrentBatteries int     `yaml:"current_batteries"`
}

// Result counts the rows a seed run created; rows that already existed are not counted.
type Result struct {
	Categories int
	Types      int
	Batteries  int
	Stations   int
}

func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) Validate() error {
	var errs []error
	serials := map[string]bool{}

	for _, cat := range c.Categories {
		if cat.Name == "" {
			errs = append(errs, errors.New("category without a name"))
		}
		for _, t := range cat.Types {
			if t.Name == "" {
				errs = append(errs, fmt.Errorf("category %q: type without a name", cat.Name))
			}
			for _, b := range t.Batteries {
				switch {
				case b.Name == "" || b.SerialNumber == "":
					errs = append(errs, fmt.Errorf("type %q: battery needs a name and a serial number", t.Name))
				case serials[b.SerialNumber]:
					errs = append(errs, fmt.Errorf("battery serial %q listed twice", b.SerialNumber))
				case b.DailyPriceCents < 0 || b.DepositCents < 0 || b.PowerW < 0:
					errs = append(errs, fmt.Errorf("battery %q: price, deposit and power can not be negative", b.SerialNumber))
				}
				serials[b.SerialNumber] = true
			}
		}
	}

	for _, s := range c.Stations {
		switch {
		case s.Name == "":
			errs = append(errs, errors.New("station without a name"))
		case !geo.ValidCoordinate(s.Latitude, s.Longitude):
			errs = append(errs, fmt.Errorf("station %q: coordinate out of range", s.Name))
		case s.MaxBatteries <= 0 || s.CurrentBatteries < 0 || s.CurrentBatteries > s.MaxBatteries:
			errs = append(errs, fmt.Errorf("station %q: stock %d does not fit capacity %d", s.Name, s.CurrentBatteries, s.MaxBatteries))
		}
	}

	return errors.Join(errs...)
}

// Apply inserts whatever of c is not in the database yet, matching categories and
// stations by name, types by name within their category and batteries by serial.
// Existing rows are left as they are, so applying the same file twice is a no-op.
func Apply(ctx context.Context, conn *gorm.DB, c *Catalog) (*Result, error) {
	logger := common.GetLoggerWith(common.LoggerNameSeed)

	result := &Result{}
	err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, cat := range c.Categories {
			category := models.BatteryCategory{Name: cat.Name}
			res := tx.Where(models.BatteryCategory{Name: cat.Name}).
				Attrs(models.BatteryCategory{Description: cat.Description, Icon: cat.Icon}).
				FirstOrCreate(&category)
			if res.Error != nil {
				return res.Error
			}
			result.Categories += int(res.RowsAffected)

			for _, t := range cat.Types {
				batteryType := models.BatteryType{}
				res := tx.Where(models.BatteryType{Name: t.Name, CategoryID: category.ID}).
					Attrs(models.BatteryType{Description: t.Description}).
					FirstOrCreate(&batteryType)
				if res.Error != nil {
					return res.Error
				}
				result.Types += int(res.RowsAffected)

				for _, b := range t.Batteries {
					battery := models.Battery{}
					res := tx.Where(models.Battery{SerialNumber: b.SerialNumber}).
						Attrs(models.Battery{
							Name:            b.Name,
							TypeID:          batteryType.ID,
							Status:          models.BatteryStatusAvailable,
							CapacityAh:      b.CapacityAh,
							VoltageV:        b.VoltageV,
							PowerW:          b.PowerW,
							WeightKg:        b.WeightKg,
							DailyPriceCents: b.DailyPriceCents,
							DepositCents:    b.DepositCents,
							Location:        b.Location,
							Latitude:        b.Latitude,
							Longitude:       b.Longitude,
						}).
						FirstOrCreate(&battery)
					if res.Error != nil {
						return res.Error
					}
					result.Batteries += int(res.RowsAffected)
				}
			}
		}

		for _, s := range c.Stations {
			station := models.Station{}
			res := tx.Where(models.Station{Name: s.Name}).
				Attrs(models.Station{
					Address:          s.Address,
					Phone:            s.Phone,
					Latitude:         s.Latitude,
					Longitude:        s.Longitude,
					Description:      s.Description,
					BusinessHours:    s.BusinessHours,
					MaxBatteries:     s.MaxBatteries,
					CurrentBatteries: s.CurrentBatteries,
					IsActive:         true,
				}).
				FirstOrCreate(&station)
			if res.Error != nil {
				return res.Error
			}
			result.Stations += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply seed: %w", err)
	}

	logger.Info("Seeded catalog", zap.Int("categories", result.Categories), zap.Int("types", result.Types),
		zap.Int("batteries", result.Batteries), zap.Int("stations", result.Stations))
	return result, nil
}
