package main

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func viewCommand() *cli.Command {
	return &cli.Command{
		Name:  "view",
		Usage: "Start the session trace API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":18900",
				Sources: cli.EnvVars("SREGAME_VIEW_ADDR"),
				Usage:   "Server listen address",
			},
			&cli.StringFlag{
				Name:    "dir",
				Sources: cli.EnvVars("SREGAME_VIEW_DIR"),
				Usage:   "Local directory containing trace JSON files",
			},
			&cli.StringFlag{
				Name:    "bucket",
				Sources: cli.EnvVars("SREGAME_VIEW_BUCKET"),
				Usage:   "Google Cloud Storage bucket name or gs:// URI",
			},
			&cli.StringFlag{
				Name:    "prefix",
				Sources: cli.EnvVars("SREGAME_VIEW_PREFIX"),
				Usage:   "Google Cloud Storage object prefix",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.String("dir")
			bucket := cmd.String("bucket")

			if dir == "" && bucket == "" {
				return goerr.New("either --dir or --bucket must be specified")
			}
			if dir != "" && bucket != "" {
				return goerr.New("--dir and --bucket are mutually exclusive")
			}

			var src traceSource
			if dir != "" {
				src = newLocalSource(dir)
			} else {
				prefix := cmd.String("prefix")
				if strings.HasPrefix(bucket, "gs://") {
					var err error
					bucket, prefix, err = parseGSURI(bucket)
					if err != nil {
						return err
					}
				}
				var err error
				src, err = newCSSource(ctx, bucket, prefix)
				if err != nil {
					return goerr.Wrap(err, "failed to create Cloud Storage source")
				}
			}

			s := newServer(withAddr(cmd.String("addr")), withSource(src))
			return s.start(ctx)
		},
	}
}

// parseGSURI splits gs://bucket/path into the bucket and an object prefix
// ending with "/".
func parseGSURI(uri string) (string, string, error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", goerr.New("URI must start with gs://", goerr.V("uri", uri))
	}

	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", goerr.New("bucket name is empty", goerr.V("uri", uri))
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return bucket, prefix, nil
}
