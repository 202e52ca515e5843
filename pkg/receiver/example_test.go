package receiver_test

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/dcf77rx/pkg/receiver"
)

// ExampleNew decodes three minutes of simulated broadcast.
func ExampleNew() {
	cfg := receiver.Config{
		Source: receiver.SourceSim,
		Sim: receiver.SimConfig{
			Start:   time.Date(2025, time.February, 23, 15, 29, 0, 0, time.UTC),
			Minutes: 3,
		},
	}

	r, err := receiver.New(cfg, receiver.WithEventHandler(&printHandler{}))
	if err != nil {
		fmt.Printf("failed to create receiver: %v\n", err)
		return
	}

	if err := r.Start(context.Background()); err != nil {
		fmt.Printf("failed to start: %v\n", err)
		return
	}
	r.Wait()

	fmt.Println(r.Status())

	// Output:
	// Sun Feb 23 15:30:00 2025 CET
	// Sun Feb 23 15:31:00 2025 CET
	// Sun Feb 23 15:32:00 2025 CET
	// Stopped
}

type printHandler struct {
	receiver.BaseEventHandler
}

func (printHandler) OnFrame(f receiver.Frame) {
	fmt.Println(f.Time, f.Zone())
}
