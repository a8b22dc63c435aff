package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"spotbot/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var log = logger.Component("policy")

// Source hands out the policy in force for the next decision.
type Source interface {
	Current() Policy
}

// Static is a Source that never changes.
type Static Policy

func (s Static) Current() Policy { return Policy(s) }

// FileConfig maps the policy file.
type FileConfig struct {
	Policy Policy `yaml:"policy"`
}

// Snapshot is one loaded revision of the policy file.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Policy   Policy
}

type ChangeListener func(Snapshot)

// Registry keeps the latest valid policy file and reloads it on change.
// A file that fails validation leaves the previous revision in force.
type Registry struct {
	path   string
	v      *viper.Viper
	schema *jsonschema.Schema

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

func NewRegistry(path string, watch bool) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("policy registry requires path")
	}
	schema, err := compileSchema(policySchema)
	if err != nil {
		return nil, fmt.Errorf("compile policy schema: %w", err)
	}
	r := &Registry{path: path, schema: schema}
	if err := r.reload(); err != nil {
		return nil, err
	}
	if watch {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read policy file failed: %w", err)
		}
		v.OnConfigChange(func(evt fsnotify.Event) {
			if err := r.reload(); err != nil {
				log.Errorf("policy reload failed (%s), keeping version %d: %v", evt.Op, r.Snapshot().Version, err)
				return
			}
			r.notifyListeners()
		})
		v.WatchConfig()
		r.v = v
	}
	return r, nil
}

func (r *Registry) Current() Policy {
	return r.Snapshot().Policy
}

func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := r.snapshot
	snap.Policy = snap.Policy.normalize()
	return snap
}

func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Reload re-reads the file immediately.
func (r *Registry) Reload() error {
	if err := r.reload(); err != nil {
		return err
	}
	r.notifyListeners()
	return nil
}

func (r *Registry) reload() error {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read policy file failed: %w", err)
	}
	cfg, err := decodePolicy(raw, r.schema)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Policy:   cfg.Policy.normalize(),
	}
	version := r.snapshot.Version
	r.mu.Unlock()
	log.Infof("policy loaded from %s version=%d enabled=%v", filepath.Base(r.path), version, cfg.Policy.Enabled)
	return nil
}

func (r *Registry) notifyListeners() {
	snap := r.Snapshot()
	r.mu.RLock()
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer safeRecover("policy listener")
			cb(snap)
		}(fn)
	}
}

func decodePolicy(raw []byte, schema *jsonschema.Schema) (FileConfig, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return FileConfig{}, fmt.Errorf("parse policy file failed: %w", err)
	}
	if schema != nil {
		generic, err := toJSONValue(doc)
		if err != nil {
			return FileConfig{}, err
		}
		if err := schema.Validate(generic); err != nil {
			return FileConfig{}, fmt.Errorf("policy file invalid: %w", err)
		}
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse policy file failed: %w", err)
	}
	if err := validate(cfg.Policy); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

func validate(p Policy) error {
	if p.RSIMin > 0 && p.RSIMax > 0 && p.RSIMin >= p.RSIMax {
		return fmt.Errorf("policy rsi_min (%.2f) must be below rsi_max (%.2f)", p.RSIMin, p.RSIMax)
	}
	if p.MinATRPct > 0 && p.MaxATRPct > 0 && p.MinATRPct >= p.MaxATRPct {
		return fmt.Errorf("policy min_atr_pct must be below max_atr_pct")
	}
	for _, d := range p.AvoidWeekdays {
		if _, err := ParseWeekday(d); err != nil {
			return fmt.Errorf("policy avoid_weekdays: %w", err)
		}
	}
	return nil
}

// toJSONValue round-trips a YAML document through encoding/json so the
// schema validator sees json.Number and map[string]any only.
func toJSONValue(doc any) (any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("policy file is not representable as JSON: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func compileSchema(schema string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("policy.json", strings.NewReader(schema)); err != nil {
		return nil, err
	}
	return compiler.Compile("policy.json")
}

func safeRecover(tag string) {
	if r := recover(); r != nil {
		log.Errorf("%s panic: %v", tag, r)
	}
}
