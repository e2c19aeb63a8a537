package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// fileConfig mirrors Config in HCL. Durations are strings such as "5s".
type fileConfig struct {
	Mongo   *mongoBlock   `hcl:"mongo,block"`
	Content *contentBlock `hcl:"content,block"`
	Printer *printerBlock `hcl:"printer,block"`
	Poller  *pollerBlock  `hcl:"poller,block"`
	Server  *serverBlock  `hcl:"server,block"`
	Logging *loggingBlock `hcl:"logging,block"`
}

type mongoBlock struct {
	URI            *string `hcl:"uri,optional"`
	Database       *string `hcl:"database,optional"`
	JobsCollection *string `hcl:"jobs_collection,optional"`
	Bucket         *string `hcl:"bucket,optional"`
}

type contentBlock struct {
	Backend   *string `hcl:"backend,optional"`
	Bucket    *string `hcl:"bucket,optional"`
	Prefix    *string `hcl:"prefix,optional"`
	Endpoint  *string `hcl:"endpoint,optional"`
	Region    *string `hcl:"region,optional"`
	PathStyle *bool   `hcl:"path_style,optional"`
	AccessKey *string `hcl:"access_key,optional"`
	SecretKey *string `hcl:"secret_key,optional"`
	Anonymous *bool   `hcl:"anonymous,optional"`
}

type printerBlock struct {
	Mode         *string `hcl:"mode,optional"`
	Name         *string `hcl:"name,optional"`
	LPBinary     *string `hcl:"lp_binary,optional"`
	LPStatBinary *string `hcl:"lpstat_binary,optional"`
	ServerURL    *string `hcl:"server_url,optional"`
}

type pollerBlock struct {
	Interval     *string `hcl:"interval,optional"`
	StoreTimeout *string `hcl:"store_timeout,optional"`
	FetchTimeout *string `hcl:"fetch_timeout,optional"`
	PrintTimeout *string `hcl:"print_timeout,optional"`
	DrainTimeout *string `hcl:"drain_timeout,optional"`
	TempDir      *string `hcl:"temp_dir,optional"`
}

type serverBlock struct {
	Enabled      *bool   `hcl:"enabled,optional"`
	Host         *string `hcl:"host,optional"`
	Port         *int    `hcl:"port,optional"`
	ReadTimeout  *string `hcl:"read_timeout,optional"`
	WriteTimeout *string `hcl:"write_timeout,optional"`
}

type loggingBlock struct {
	Level *string `hcl:"level,optional"`
}

// LoadFile overlays the settings of an HCL file onto c.
func (c *Config) LoadFile(path string) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse config file: %w", diagError(diags))
	}
	return c.decode(file.Body)
}

// LoadSource is LoadFile for in-memory content.
func (c *Config) LoadSource(src []byte, filename string) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse config file: %w", diagError(diags))
	}
	return c.decode(file.Body)
}

func (c *Config) decode(body hcl.Body) error {
	var fc fileConfig
	if diags := gohcl.DecodeBody(body, nil, &fc); diags.HasErrors() {
		return fmt.Errorf("failed to decode config file: %w", diagError(diags))
	}

	if b := fc.Mongo; b != nil {
		set(&c.Mongo.URI, b.URI)
		set(&c.Mongo.Database, b.Database)
		set(&c.Mongo.JobsCollection, b.JobsCollection)
		set(&c.Mongo.Bucket, b.Bucket)
	}
	if b := fc.Content; b != nil {
		set(&c.Content.Backend, b.Backend)
		set(&c.Content.Bucket, b.Bucket)
		set(&c.Content.Prefix, b.Prefix)
		set(&c.Content.Endpoint, b.Endpoint)
		set(&c.Content.Region, b.Region)
		set(&c.Content.PathStyle, b.PathStyle)
		set(&c.Content.AccessKey, b.AccessKey)
		set(&c.Content.SecretKey, b.SecretKey)
		set(&c.Content.Anonymous, b.Anonymous)
	}
	if b := fc.Printer; b != nil {
		set(&c.Printer.Mode, b.Mode)
		set(&c.Printer.Name, b.Name)
		set(&c.Printer.LPBinary, b.LPBinary)
		set(&c.Printer.LPStatBinary, b.LPStatBinary)
		set(&c.Printer.ServerURL, b.ServerURL)
	}
	if b := fc.Server; b != nil {
		set(&c.Server.Enabled, b.Enabled)
		set(&c.Server.Host, b.Host)
		set(&c.Server.Port, b.Port)
	}
	if b := fc.Logging; b != nil {
		set(&c.Logging.Level, b.Level)
	}

	var errs []error
	if b := fc.Poller; b != nil {
		set(&c.Poller.TempDir, b.TempDir)
		errs = append(errs,
			setDuration(&c.Poller.Interval, "poller.interval", b.Interval),
			setDuration(&c.Poller.StoreTimeout, "poller.store_timeout", b.StoreTimeout),
			setDuration(&c.Poller.FetchTimeout, "poller.fetch_timeout", b.FetchTimeout),
			setDuration(&c.Poller.PrintTimeout, "poller.print_timeout", b.PrintTimeout),
			setDuration(&c.Poller.DrainTimeout, "poller.drain_timeout", b.DrainTimeout),
		)
	}
	if b := fc.Server; b != nil {
		errs = append(errs,
			setDuration(&c.Server.ReadTimeout, "server.read_timeout", b.ReadTimeout),
			setDuration(&c.Server.WriteTimeout, "server.write_timeout", b.WriteTimeout),
		)
	}
	return errors.Join(errs...)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, name string, v *string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q", name, *v)
	}
	*dst = d
	return nil
}

// diagError flattens diagnostics into one error carrying file positions.
func diagError(diags hcl.Diagnostics) error {
	var msgs []string
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		msg := d.Summary
		if d.Detail != "" {
			msg += ": " + d.Detail
		}
		if d.Subject != nil {
			msg = fmt.Sprintf("%s:%d,%d: %s", d.Subject.Filename, d.Subject.Start.Line, d.Subject.Start.Column, msg)
		}
		msgs = append(msgs, msg)
	}
	return errors.New(strings.Join(msgs, "; "))
}
