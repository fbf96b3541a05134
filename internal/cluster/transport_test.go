package cluster

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RentalGrid/RentalGrid/internal/common/config"
	"github.com/RentalGrid/RentalGrid/internal/seal"
)

type brokenSealer struct{}

func (brokenSealer) Seal(plaintext []byte) ([]byte, error) { return nil, errors.New("no entropy") }

func (brokenSealer) Open(sealed []byte) ([]byte, error) { return nil, errors.New("no entropy") }

func transportConfig() *config.Config {
	return &config.Config{
		Node: config.NodeConfig{Name: "branch-node-1", ClusterID: 1},
		Cluster: config.ClusterConfig{
			Nodes: []config.ClusterNode{
				{Host: "127.0.0.1", GRPCPort: 50050},
				{Host: "127.0.0.1", GRPCPort: 50051, BranchName: "Central"},
			},
		},
	}
}

func TestSealMessageRoundTrip(t *testing.T) {
	sealer := seal.New("cluster-pass")
	tr := NewTransport(transportConfig(), sealer, nil)

	body := []byte(`{"operationCode":21}`)
	msg := tr.sealMessage(0, 21, body)
	if !msg.Sealed {
		t.Fatalf("payload must be sealed when a sealer is configured")
	}
	if bytes.Equal(msg.Body, body) {
		t.Fatalf("sealed body must differ from plaintext")
	}
	opened, err := sealer.Open(msg.Body)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(opened, body) {
		t.Fatalf("opened body mismatch: %q", opened)
	}
}

func TestSealFailureFallsBackToPlaintext(t *testing.T) {
	tr := NewTransport(transportConfig(), brokenSealer{}, nil)

	body := []byte(`{"operationCode":21}`)
	msg := tr.sealMessage(0, 21, body)
	if msg.Sealed {
		t.Fatalf("failed sealing must not mark the message sealed")
	}
	if !bytes.Equal(msg.Body, body) {
		t.Fatalf("fallback must carry the plaintext body, got %q", msg.Body)
	}
}

func TestDeliverFallsBackOnUnopenablePayload(t *testing.T) {
	tr := NewTransport(transportConfig(), seal.New("cluster-pass"), nil)

	// 标成已封包、实为垃圾的报文：解包失败后按明文投递
	raw := []byte(`{"operationCode":21}`)
	if _, err := tr.deliver(context.Background(), &wireMessage{Source: 0, Tag: 21, Body: raw, Sealed: true}); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := tr.Receive(ctx, 0, 21)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if !bytes.Equal(got.Body, raw) {
		t.Fatalf("fallback body mismatch: %q", got.Body)
	}
}

func TestSelfDeliveryBypassesWire(t *testing.T) {
	tr := NewTransport(transportConfig(), seal.New("cluster-pass"), nil)

	body := []byte(`{"operationCode":30}`)
	if err := tr.Send(context.Background(), 1, 30, body); err != nil {
		t.Fatalf("send to self: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := tr.Receive(ctx, 1, 30)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if !bytes.Equal(got.Body, body) {
		t.Fatalf("self delivery body mismatch: %q", got.Body)
	}
}
