package multiobjective

import (
	"flag"
	"os"
	"testing"

	"k8s.io/klog/v2"
)

func TestMain(m *testing.M) {
	fs := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(fs)
	// Keep per-sample logs out of test output unless asked for
	if v := os.Getenv("TEST_KLOG_V"); v != "" {
		_ = fs.Set("v", v)
	}

	code := m.Run()
	klog.Flush()
	os.Exit(code)
}
