package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"github.com/valyala/fasthttp"
	"github.com/vbauerster/mpb/v4"
	"github.com/vbauerster/mpb/v4/decor"

	"github.com/ducdk90/tilequeue/config"
	"github.com/ducdk90/tilequeue/internal/nlog"
	"github.com/ducdk90/tilequeue/store"
)

var tileSizeCommand = &cli.Command{
	Name:  "tile-size",
	Usage: "sample the configured blob store over HTTP HEAD requests and report total artifact size",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "base-url", Required: true, Usage: "HTTP origin serving the blob store, e.g. https://tiles.example.com"},
		&cli.StringFlag{Name: "keys-file", Usage: "newline-delimited keys to sample; defaults to a directory-backend walk"},
		&cli.StringFlag{Name: "prefix", Value: "", Usage: "key prefix to walk when sampling a directory-backend store"},
	},
	Action: func(c *cli.Context) error {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return err
		}

		keys, err := tileSizeKeys(c, cfg)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			nlog.Infof("tile-size: no keys to sample")
			return nil
		}

		baseURL := strings.TrimSuffix(c.String("base-url"), "/")
		client := &fasthttp.Client{
			MaxConnsPerHost: 64,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
		}

		progress := mpb.New(mpb.WithWidth(40))
		bar := progress.AddBar(int64(len(keys)),
			mpb.PrependDecorators(decor.Name("tile-size")),
			mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
		)

		var totalBytes int64
		var nOK, nErr int
		for _, key := range keys {
			size, err := headSize(client, baseURL+"/"+key)
			if err != nil {
				nErr++
				nlog.Warnf("tile-size: HEAD %s: %v", key, err)
			} else {
				nOK++
				totalBytes += size
			}
			bar.Increment()
		}
		progress.Wait()

		nlog.Infof("tile-size: sampled %d keys (%d ok, %d errors), total %d bytes", len(keys), nOK, nErr, totalBytes)
		return nil
	},
}

func tileSizeKeys(c *cli.Context, cfg *config.Config) ([]string, error) {
	if path := c.String("keys-file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "tile-size: open %s", path)
		}
		defer f.Close()
		var keys []string
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line != "" {
				keys = append(keys, line)
			}
		}
		return keys, sc.Err()
	}

	if cfg.Store.Type != "directory" {
		return nil, errors.Errorf("tile-size: --keys-file is required unless store.type is directory")
	}
	backend := store.NewDirectoryBackend(cfg.Store.Path)
	return backend.Walk(c.String("prefix"))
}

func headSize(client *fasthttp.Client, url string) (int64, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(fasthttp.MethodHead)
	req.SetRequestURI(url)

	if err := client.Do(req, resp); err != nil {
		return 0, err
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return 0, fmt.Errorf("status %d", resp.StatusCode())
	}
	return int64(resp.Header.ContentLength()), nil
}
