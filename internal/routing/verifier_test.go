package routing

import (
	"context"
	"testing"
)

func TestVerifyBatchAcceptsValidRejectsInvalid(t *testing.T) {
	aPub, aSec := mustKeypair(t)
	bPub, bSec := mustKeypair(t)
	cPub, cSec := mustKeypair(t)
	dPub, dSec := mustKeypair(t)

	good := signedActiveEdge(t, aPub, aSec, bPub, bSec, 1)
	bad := signedActiveEdge(t, cPub, cSec, dPub, dSec, 1)
	for p := range bad.Signatures {
		bad.Signatures[p][0] ^= 0xFF
		break
	}

	v := NewVerifier(256)
	accepted, allOK, err := v.VerifyBatch(context.Background(), []Edge{good, bad}, nil)
	if err != nil {
		t.Fatalf("VerifyBatch: %v", err)
	}
	if allOK {
		t.Fatalf("expected allOK false when batch contains an invalid edge")
	}
	if len(accepted) != 1 || accepted[0].Key() != good.Key() {
		t.Fatalf("expected only the valid edge accepted, got %+v", accepted)
	}
}

func TestVerifyBatchSkipsStaleAgainstKnown(t *testing.T) {
	aPub, aSec := mustKeypair(t)
	bPub, bSec := mustKeypair(t)
	older := signedActiveEdge(t, aPub, aSec, bPub, bSec, 1)
	newer := signedActiveEdge(t, aPub, aSec, bPub, bSec, 3)

	known := map[EdgeKey]Edge{newer.Key(): newer}
	v := NewVerifier(256)
	accepted, allOK, err := v.VerifyBatch(context.Background(), []Edge{older}, known)
	if err != nil {
		t.Fatalf("VerifyBatch: %v", err)
	}
	if !allOK {
		t.Fatalf("a stale-but-otherwise-valid edge should not mark the batch invalid")
	}
	if len(accepted) != 0 {
		t.Fatalf("expected stale edge to be filtered before verification, got %+v", accepted)
	}
}

func TestVerifyBatchDedupesWithinBatch(t *testing.T) {
	aPub, aSec := mustKeypair(t)
	bPub, bSec := mustKeypair(t)
	e1 := signedActiveEdge(t, aPub, aSec, bPub, bSec, 1)
	e3 := signedActiveEdge(t, aPub, aSec, bPub, bSec, 3)

	v := NewVerifier(256)
	accepted, allOK, err := v.VerifyBatch(context.Background(), []Edge{e1, e3}, nil)
	if err != nil {
		t.Fatalf("VerifyBatch: %v", err)
	}
	if !allOK {
		t.Fatalf("expected allOK true for two valid, same-key edges")
	}
	if len(accepted) != 1 || accepted[0].Nonce != 3 {
		t.Fatalf("expected only the higher-nonce edge accepted, got %+v", accepted)
	}
}
