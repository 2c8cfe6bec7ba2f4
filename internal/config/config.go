package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/estatefit-cli/internal/utils"
)

// Global configuration structure.
type Global struct {
	DataPath   string `mapstructure:"data_path" yaml:"data_path" validate:"required"`
	TestPath   string `mapstructure:"test_path" yaml:"test_path"`
	ModelPath  string `mapstructure:"model_path" yaml:"model_path" validate:"required"`
	OutputDir  string `mapstructure:"output_dir" yaml:"output_dir" validate:"required"`
	Target     string `mapstructure:"target" yaml:"target" validate:"required"`
	IDColumn   string `mapstructure:"id_column" yaml:"id_column"`
	Submission string `mapstructure:"submission_path" yaml:"submission_path"`

	// Forest hyperparameters. Zero max_depth and max_features mean unlimited.
	NEstimators     int   `mapstructure:"n_estimators" yaml:"n_estimators" validate:"gte=1"`
	MaxDepth        int   `mapstructure:"max_depth" yaml:"max_depth" validate:"gte=0"`
	MinSamplesSplit int   `mapstructure:"min_samples_split" yaml:"min_samples_split" validate:"gte=2"`
	MinSamplesLeaf  int   `mapstructure:"min_samples_leaf" yaml:"min_samples_leaf" validate:"gte=1"`
	MaxFeatures     int   `mapstructure:"max_features" yaml:"max_features" validate:"gte=0"`
	RandomState     int64 `mapstructure:"random_state" yaml:"random_state"`
	NJobs           int   `mapstructure:"n_jobs" yaml:"n_jobs"`

	TestSize    float64 `mapstructure:"test_size" yaml:"test_size" validate:"gt=0,lt=1"`
	CVFolds     int     `mapstructure:"cv_folds" yaml:"cv_folds" validate:"gte=2"`
	TopFeatures int     `mapstructure:"top_features" yaml:"top_features" validate:"gte=1"`

	CategoricalColumns []string `mapstructure:"categorical_columns" yaml:"categorical_columns"`
	AreaColumns        []string `mapstructure:"area_columns" yaml:"area_columns"`
	GroupBy            []string `mapstructure:"group_by" yaml:"group_by"`

	// Decimal and thousands separators for numeric cells; empty decimal
	// means '.', "auto" detects per value.
	DecimalSeparator   string `mapstructure:"decimal_separator" yaml:"decimal_separator" validate:"omitempty,oneof=. 0x2C auto"`
	ThousandsSeparator string `mapstructure:"thousands_separator" yaml:"thousands_separator" validate:"omitempty,oneof=. 0x2C space"`

	RunsDB      string `mapstructure:"runs_db" yaml:"runs_db"`
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"`
	Currency    string `mapstructure:"currency" yaml:"currency"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
}

// DirName is the per-user config directory under $HOME.
const DirName = ".estatefit"

var defaults = map[string]any{
	"data_path":           "data/data.csv",
	"test_path":           "data/test.csv",
	"model_path":          "model_pipeline.bin",
	"output_dir":          "outputs",
	"target":              "price",
	"id_column":           "index",
	"submission_path":     "submission.csv",
	"n_estimators":        400,
	"max_depth":           0,
	"min_samples_split":   2,
	"min_samples_leaf":    1,
	"max_features":        0,
	"random_state":        42,
	"n_jobs":              -1,
	"test_size":           0.2,
	"cv_folds":            5,
	"top_features":        20,
	"categorical_columns": []string{"gas", "hot_water", "central_heating", "extra_area_type_name", "district_name"},
	"area_columns":        []string{"total_area", "kitchen_area", "bath_area"},
	"group_by":            []string{"district_name"},
	"decimal_separator":   "",
	"thousands_separator": "",
	"runs_db":             "",
	"metrics_file":        "",
	"currency":            "RUB",
	"log_level":           "warn",
}

// Defaults returns the built-in configuration without reading files or env.
func Defaults() *Global {
	c, err := load(viper.New())
	if err != nil {
		// Only reachable when the home directory cannot be resolved.
		c = &Global{}
	}
	return c
}

// Dir returns ~/.estatefit.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.estatefit/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("ESTATEFIT")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}
	c, err := load(v)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func load(v *viper.Viper) (*Global, error) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// env vars arrive as a single string; accept comma lists
	c.CategoricalColumns = splitList(c.CategoricalColumns)
	c.AreaColumns = splitList(c.AreaColumns)
	c.GroupBy = splitList(c.GroupBy)
	if c.RunsDB == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.RunsDB = filepath.Join(dir, "runs.db")
	}
	for _, p := range []*string{&c.DataPath, &c.TestPath, &c.ModelPath, &c.OutputDir, &c.Submission, &c.RunsDB, &c.MetricsFile} {
		expanded, err := utils.ExpandHome(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}
	return &c, nil
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		return name
	})
	return v
}

// Validate checks value ranges and reports every offending key.
func (c *Global) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	key := fe.Field()
	switch fe.Tag() {
	case "required":
		return key + " is required"
	case "gte":
		return fmt.Sprintf("%s must be >= %s", key, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be > %s", key, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be < %s", key, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", key, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", key, fe.Tag())
	}
}

// Set assigns a single key from its string form. List keys take comma
// separated values. The result is validated before it is accepted.
func (c *Global) Set(key, value string) error {
	next := *c
	strs := map[string]*string{
		"data_path":           &next.DataPath,
		"test_path":           &next.TestPath,
		"model_path":          &next.ModelPath,
		"output_dir":          &next.OutputDir,
		"target":              &next.Target,
		"id_column":           &next.IDColumn,
		"submission_path":     &next.Submission,
		"decimal_separator":   &next.DecimalSeparator,
		"thousands_separator": &next.ThousandsSeparator,
		"runs_db":             &next.RunsDB,
		"metrics_file":        &next.MetricsFile,
		"currency":            &next.Currency,
		"log_level":           &next.LogLevel,
	}
	ints := map[string]*int{
		"n_estimators":      &next.NEstimators,
		"max_depth":         &next.MaxDepth,
		"min_samples_split": &next.MinSamplesSplit,
		"min_samples_leaf":  &next.MinSamplesLeaf,
		"max_features":      &next.MaxFeatures,
		"n_jobs":            &next.NJobs,
		"cv_folds":          &next.CVFolds,
		"top_features":      &next.TopFeatures,
	}
	lists := map[string]*[]string{
		"categorical_columns": &next.CategoricalColumns,
		"area_columns":        &next.AreaColumns,
		"group_by":            &next.GroupBy,
	}

	if p, ok := strs[key]; ok {
		*p = value
	} else if p, ok := ints[key]; ok {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid int for %s: %w", key, err)
		}
		*p = n
	} else if p, ok := lists[key]; ok {
		*p = splitList([]string{value})
	} else {
		switch key {
		case "random_state":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid int for %s: %w", key, err)
			}
			next.RandomState = n
		case "test_size":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("invalid float for %s: %w", key, err)
			}
			next.TestSize = f
		default:
			return fmt.Errorf("unknown key: %s (known: %s)", key, strings.Join(Keys(), ", "))
		}
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// Keys lists every configuration key, sorted.
func Keys() []string {
	out := make([]string, 0, len(defaults))
	for k := range defaults {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
