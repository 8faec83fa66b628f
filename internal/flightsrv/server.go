// Package flightsrv exposes the sampler over Arrow Flight so reference
// implementations in other languages can drive it remotely: a DoGet ticket
// carries one sampling request as JSON, the response stream carries the
// drawn token ids as a record batch.
package flightsrv

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/23skdu/longbow-nock/internal/harness"
	"github.com/23skdu/longbow-nock/internal/logger"
	"github.com/23skdu/longbow-nock/internal/metrics"
	"github.com/23skdu/longbow-nock/internal/monitoring"
	"github.com/23skdu/longbow-nock/internal/sampler"
)

// Request is the JSON payload of a DoGet ticket.
type Request struct {
	Case   harness.Case `json:"case"`
	Trials int          `json:"trials"`
	Seed   int64        `json:"seed"`
}

// SampleSchema is the layout of the response stream: one row per accepted
// draw, in draw order.
var SampleSchema = arrow.NewSchema([]arrow.Field{
	{Name: "token", Type: arrow.PrimitiveTypes.Int32},
}, nil)

// batchRows caps the rows per record batch on the response stream.
const batchRows = 4096

// Service implements the Flight sampling endpoint.
type Service struct {
	flight.BaseFlightServer

	// DefaultSeed applies when a request carries Seed 0.
	DefaultSeed int64

	// Health receives per-run observations when set.
	Health *monitoring.Monitor

	log *logger.Logger
}

func NewService(defaultSeed int64) *Service {
	return &Service{
		DefaultSeed: defaultSeed,
		log:         logger.Log.With("flight"),
	}
}

// Serve binds the service to addr and blocks. The returned server is also
// handed to ready (if non-nil) once the listener is up, for shutdown.
func Serve(svc *Service, addr string, ready func(flight.Server)) error {
	srv := flight.NewServerWithMiddleware(nil)
	if err := srv.Init(addr); err != nil {
		return fmt.Errorf("failed to bind flight listener: %w", err)
	}
	srv.RegisterFlightService(svc)
	if ready != nil {
		ready(srv)
	}
	svc.log.Info("flight service listening", "addr", srv.Addr().String())
	return srv.Serve()
}

// ListFlights advertises the canonical cases with ready-made tickets.
func (s *Service) ListFlights(c *flight.Criteria, fs flight.FlightService_ListFlightsServer) error {
	for _, cs := range harness.Canonical() {
		info, err := s.caseInfo(cs)
		if err != nil {
			return status.Errorf(codes.Internal, "failed to describe case %s: %v", cs.Name, err)
		}
		if err := fs.Send(info); err != nil {
			return err
		}
	}
	return nil
}

// GetFlightInfo resolves a path descriptor ["cases", name] to a canonical
// case ticket.
func (s *Service) GetFlightInfo(ctx context.Context, in *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	if in.Type != flight.DescriptorPATH || len(in.Path) != 2 || in.Path[0] != "cases" {
		return nil, status.Errorf(codes.InvalidArgument, "descriptor must be a path [cases, <name>]")
	}
	for _, cs := range harness.Canonical() {
		if cs.Name == in.Path[1] {
			return s.caseInfo(cs)
		}
	}
	return nil, status.Errorf(codes.NotFound, "unknown case %q", in.Path[1])
}

func (s *Service) caseInfo(cs harness.Case) (*flight.FlightInfo, error) {
	ticket, err := json.Marshal(Request{Case: cs, Trials: 1000})
	if err != nil {
		return nil, err
	}
	return &flight.FlightInfo{
		Schema: flight.SerializeSchema(SampleSchema, memory.DefaultAllocator),
		FlightDescriptor: &flight.FlightDescriptor{
			Type: flight.DescriptorPATH,
			Path: []string{"cases", cs.Name},
		},
		Endpoint: []*flight.FlightEndpoint{
			{Ticket: &flight.Ticket{Ticket: ticket}},
		},
		TotalRecords: -1,
		TotalBytes:   -1,
	}, nil
}

// DoGet runs the requested trials and streams the accepted token ids.
func (s *Service) DoGet(tkt *flight.Ticket, fs flight.FlightService_DoGetServer) error {
	var req Request
	if err := json.Unmarshal(tkt.Ticket, &req); err != nil {
		metrics.RecordFlightRequest("bad_ticket")
		return status.Errorf(codes.InvalidArgument, "ticket is not a sampling request: %v", err)
	}
	if req.Trials <= 0 {
		req.Trials = 1000
	}
	if req.Seed == 0 {
		req.Seed = s.DefaultSeed
	}
	if err := req.Case.Validate(); err != nil {
		metrics.RecordFlightRequest("invalid_case")
		metrics.RecordValidationError("flight_do_get")
		return status.Errorf(codes.InvalidArgument, "%v", err)
	}

	smp, err := sampler.New(req.Case.SamplingConfig(req.Seed))
	if err != nil {
		metrics.RecordFlightRequest("invalid_config")
		return status.Errorf(codes.InvalidArgument, "%v", err)
	}

	w := flight.NewRecordWriter(fs, ipc.WithSchema(SampleSchema))
	defer w.Close()

	b := array.NewInt32Builder(memory.DefaultAllocator)
	defer b.Release()

	start := time.Now()
	draws, fallbacks, exhaustions := 0, 0, 0
	flush := func() error {
		if b.Len() == 0 {
			return nil
		}
		col := b.NewInt32Array()
		defer col.Release()
		rec := array.NewRecord(SampleSchema, []arrow.Array{col}, int64(col.Len()))
		defer rec.Release()
		return w.Write(rec)
	}

	for i := 0; i < req.Trials; i++ {
		id, stats, err := smp.NextStats(req.Case.Scores, req.Case.History, req.Case.EOSID)
		metrics.RecordCandidateSet(stats.Candidates)
		metrics.RecordRetry(stats.Trials, err != nil)
		if stats.FellBack {
			fallbacks++
			metrics.RepetitionFallbacks.Inc()
		}
		if err != nil {
			exhaustions++
			s.observe(req.Case.Name, draws, fallbacks, exhaustions, time.Since(start))
			metrics.RecordFlightRequest("exhausted")
			return status.Errorf(codes.ResourceExhausted, "case %s trial %d: %v", req.Case.Name, i, err)
		}
		draws++
		metrics.DrawsTotal.WithLabelValues("flight").Inc()

		b.Append(int32(id))
		if b.Len() >= batchRows {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	s.observe(req.Case.Name, draws, fallbacks, exhaustions, time.Since(start))
	metrics.RecordFlightRequest("ok")
	s.log.Info("request served", "case", req.Case.Name, "trials", req.Trials, "elapsed", time.Since(start))
	return nil
}

func (s *Service) observe(caseName string, draws, fallbacks, exhaustions int, elapsed time.Duration) {
	if s.Health != nil {
		s.Health.ObserveRun(caseName, draws, fallbacks, exhaustions, elapsed)
	}
}
