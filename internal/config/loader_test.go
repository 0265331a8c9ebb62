package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	config "github.com/phytokit/screen/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoad(t *testing.T) {
	Convey("Given the layered loader", t, func() {
		Convey("With no file and no env, defaults come through", func() {
			t.Setenv("SCREEN_CONFIG", "")
			cfg, err := config.Load(context.Background())
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":9090")
			So(cfg.BootstrapIterations, ShouldEqual, 100)
		})

		Convey("A YAML file overrides defaults", func() {
			path := filepath.Join(t.TempDir(), "screen.yaml")
			yaml := "addr: \":7070\"\nbootstrap_iterations: 250\nenable_lsh: false\n"
			So(os.WriteFile(path, []byte(yaml), 0o600), ShouldBeNil)
			t.Setenv("SCREEN_CONFIG", path)

			cfg, err := config.Load(context.Background())
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":7070")
			So(cfg.BootstrapIterations, ShouldEqual, 250)
			So(cfg.EnableLSH, ShouldBeFalse)

			Convey("Untouched fields keep their defaults", func() {
				So(cfg.QueueSize, ShouldEqual, 10_000)
				So(cfg.SynergyThreshold, ShouldEqual, 0.1)
			})
		})

		Convey("Environment variables override the file", func() {
			path := filepath.Join(t.TempDir(), "screen.yaml")
			So(os.WriteFile(path, []byte("addr: \":7070\"\n"), 0o600), ShouldBeNil)
			t.Setenv("SCREEN_CONFIG", path)
			t.Setenv("SCREEN_ADDR", ":6060")
			t.Setenv("SCREEN_LOG_LEVEL", "debug")

			cfg, err := config.Load(context.Background())
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":6060")
			So(cfg.LogLevel, ShouldEqual, "debug")
		})

		Convey("A missing config file fails the load", func() {
			t.Setenv("SCREEN_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
			_, err := config.Load(context.Background())
			So(err, ShouldWrap, config.ErrLoadConfig)
		})

		Convey("A file that fails validation is rejected", func() {
			path := filepath.Join(t.TempDir(), "screen.yaml")
			So(os.WriteFile(path, []byte("queue_size: -5\n"), 0o600), ShouldBeNil)
			t.Setenv("SCREEN_CONFIG", path)

			_, err := config.Load(context.Background())
			So(err, ShouldWrap, config.ErrInvalidConfig)
		})
	})
}
