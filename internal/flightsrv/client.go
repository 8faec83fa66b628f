package flightsrv

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client wraps the Flight connection for callers that just want draws back.
type Client struct {
	fc flight.Client
}

func Dial(addr string) (*Client, error) {
	fc, err := flight.NewClientWithMiddleware(addr, nil, nil,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to dial flight service: %w", err)
	}
	return &Client{fc: fc}, nil
}

func (c *Client) Close() error {
	return c.fc.Close()
}

// Sample runs one request on the server and returns the drawn token ids in
// draw order.
func (c *Client) Sample(ctx context.Context, req Request) ([]int, error) {
	ticket, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	stream, err := c.fc.DoGet(ctx, &flight.Ticket{Ticket: ticket})
	if err != nil {
		return nil, fmt.Errorf("DoGet failed: %w", err)
	}

	r, err := flight.NewRecordReader(stream)
	if err != nil {
		return nil, fmt.Errorf("failed to open record stream: %w", err)
	}
	defer r.Release()

	var ids []int
	for r.Next() {
		rec := r.Record()
		col, ok := rec.Column(0).(*array.Int32)
		if !ok {
			return nil, fmt.Errorf("unexpected column type %T", rec.Column(0))
		}
		for i := 0; i < col.Len(); i++ {
			ids = append(ids, int(col.Value(i)))
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("record stream failed: %w", err)
	}
	return ids, nil
}

// Cases lists the canonical cases the server advertises.
func (c *Client) Cases(ctx context.Context) ([]string, error) {
	stream, err := c.fc.ListFlights(ctx, &flight.Criteria{})
	if err != nil {
		return nil, fmt.Errorf("ListFlights failed: %w", err)
	}

	var names []string
	for {
		info, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListFlights stream failed: %w", err)
		}
		if d := info.FlightDescriptor; d != nil && len(d.Path) == 2 {
			names = append(names, d.Path[1])
		}
	}
	return names, nil
}
