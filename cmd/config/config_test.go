package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"

	"routingcore/internal/testutil"
)

func TestLoadConfigDefault(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(".."); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("")
	if AppConfig.Node.ID != "routingcore-local" {
		t.Fatalf("unexpected node id: %s", AppConfig.Node.ID)
	}
}

func TestLoadConfigOverride(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(".."); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("bootstrap")
	if AppConfig.Routing.PruneUnreachableAfterSec != 120 {
		t.Fatalf("expected PruneUnreachableAfterSec 120, got %d", AppConfig.Routing.PruneUnreachableAfterSec)
	}
	if AppConfig.Node.ID != "routingcore-bootstrap" {
		t.Fatalf("expected node id override")
	}
}

func TestLoadConfigSandbox(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox failed: %v", err)
	}
	defer sb.Cleanup()

	if err := os.Mkdir(sb.Path("config"), 0700); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}

	data := []byte("node:\n  id: sandbox\nrouting:\n  max_verify_batch: 42\n")
	if err := sb.WriteFile("config/default.yaml", data, 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(sb.Root); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("")

	if AppConfig.Node.ID != "sandbox" {
		t.Fatalf("expected node id sandbox, got %s", AppConfig.Node.ID)
	}
	if AppConfig.Routing.MaxVerifyBatch != 42 {
		t.Fatalf("expected MaxVerifyBatch 42, got %d", AppConfig.Routing.MaxVerifyBatch)
	}
}
