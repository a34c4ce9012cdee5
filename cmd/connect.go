/*
Copyright © 2025 Dmitry Mozzherin <dmozzherin@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gnames/gn"
	"github.com/tmforge/tmmigrate/internal/iomanifest"
	"github.com/tmforge/tmmigrate/internal/iomigrate"
	"github.com/tmforge/tmmigrate/internal/iosource"
	"github.com/tmforge/tmmigrate/internal/iotarget"
	"github.com/tmforge/tmmigrate/pkg/config"
	"github.com/tmforge/tmmigrate/pkg/migrate"
	"github.com/tmforge/tmmigrate/pkg/report"
)

// stores keeps connections a command needs. Nil fields are not used by
// the command.
type stores struct {
	src   migrate.Source
	dst   migrate.Target
	store migrate.ManifestStore
}

type storeKind int

const (
	withSource storeKind = 1 << iota
	withTarget
	withManifest
)

// connect checks the configuration and opens the stores selected by
// kinds. Nothing is opened when rules, the plan or selected types are
// invalid. On error the stores opened so far are closed.
func connect(ctx context.Context, cfg *config.Config, kinds storeKind) (*stores, error) {
	if err := iomigrate.CheckConfig(cfg); err != nil {
		return nil, err
	}
	res := &stores{}
	var err error

	if kinds&withSource != 0 {
		if res.src, err = iosource.New(ctx, cfg); err != nil {
			return nil, err
		}
		gn.Info("Connected to source: <em>%s</em>", iomigrate.SourceName(cfg))
	}

	if kinds&withTarget != 0 {
		if res.dst, err = iotarget.New(ctx, cfg); err != nil {
			res.close()
			return nil, err
		}
		gn.Info("Connected to target: <em>%s</em>", iomigrate.TargetName(cfg))
	}

	if kinds&withManifest != 0 {
		runID := iomigrate.RunID(cfg)
		if res.store, err = iomanifest.New(ctx, cfg, runID); err != nil {
			res.close()
			return nil, err
		}
		slog.Info("Manifest store is open",
			"kind", cfg.Manifest.Kind, "run_id", runID)
	}

	return res, nil
}

func (s *stores) close() {
	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.dst != nil {
		errs = append(errs, s.dst.Close(context.Background()))
	}
	if s.src != nil {
		errs = append(errs, s.src.Close())
	}
	if err := errors.Join(errs...); err != nil {
		slog.Warn("Cannot close connection", "error", err)
	}
}

func (s *stores) migrator(cfg *config.Config) (migrate.Migrator, error) {
	return iomigrate.New(cfg, s.src, s.dst, s.store)
}

// finishRun prints the report and turns a failed run into an error.
func finishRun(rep *report.Report, err error) error {
	if rep != nil {
		fmt.Print(rep.Summary())
	}
	if err != nil {
		return err
	}
	if rep.Failed() {
		tot := rep.Totals()
		return iomigrate.IncompleteError(tot.Errored, rep.Patch.Failed, rep.Aborted)
	}
	return nil
}
