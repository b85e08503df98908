package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
	"github.com/robfig/cron/v3"
)

// SourceFunc yields a batch of inbound payloads for a scheduled collection.
type SourceFunc func(ctx context.Context) ([]Inbound, error)

// Scheduler collects records from registered sources on cron schedules and
// hands them to the ingester, so scheduled records go through the same
// store-then-enqueue lifecycle as submitted ones. The prefix keys the queue
// deduplication: group = prefix + id, dedup id equal to the group.
type Scheduler struct {
	ingester *Ingester
	cron     *cron.Cron
}

func NewScheduler(ingester *Ingester) *Scheduler {
	return &Scheduler{
		ingester: ingester,
		cron:     cron.New(),
	}
}

func (s *Scheduler) Register(spec, prefix string, source SourceFunc) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.collect(context.Background(), prefix, source)
	})
	if err != nil {
		return errors.Wrap(err, "register schedule", j.MKV{
			"spec":   spec,
			"prefix": prefix,
		})
	}

	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) collect(ctx context.Context, prefix string, source SourceFunc) {
	ins, err := source(ctx)
	if err != nil {
		log.Error(ctx, errors.Wrap(err, "collect scheduled records", j.KV("prefix", prefix)))
		return
	}

	if len(ins) == 0 {
		return
	}

	_, err = s.ingester.SubmitScheduled(ctx, prefix, ins)
	if err != nil {
		log.Error(ctx, errors.Wrap(err, "submit scheduled records", j.MKV{
			"prefix": prefix,
			"count":  len(ins),
		}))
	}
}

// HTTPSource fetches inbound payloads from an external JSON endpoint,
// authenticating with an api key header when one is configured.
func HTTPSource(url, apiKey string) SourceFunc {
	client := &http.Client{Timeout: 15 * time.Second}

	return func(ctx context.Context) ([]Inbound, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, errors.Wrap(err, "build source request")
		}

		if apiKey != "" {
			req.Header.Set("x-api-key", apiKey)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, errors.Wrap(err, "fetch source", j.KV("url", url))
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, errors.New(fmt.Sprintf("source returned %d", resp.StatusCode), j.KV("url", url))
		}

		var ins []Inbound
		err = json.NewDecoder(resp.Body).Decode(&ins)
		if err != nil {
			return nil, errors.Wrap(err, "decode source response", j.KV("url", url))
		}

		return ins, nil
	}
}
