package tools

import (
	"context"
	"fmt"
)

// Uname is a diagnostic tool. It prints the host description to the job
// log and submits an empty artifact.
type Uname struct {
	deps Deps
}

func (u *Uname) Name() string {
	return "uname"
}

func (u *Uname) Setup(_ context.Context) error {
	u.deps.Logger.Debug().Msg("uname needs no setup")
	return nil
}

func (u *Uname) Launch(ctx context.Context) (Artifact, error) {
	res, err := u.deps.Runner.Run(ctx, Command{Path: "uname", Args: []string{"-a"}, Dir: u.deps.WorkDir})
	if err != nil {
		return Artifact{}, &ToolError{Tool: u.Name(), Kind: ScanFailed, Err: fmt.Errorf("running uname: %w", err)}
	}
	if err := Classify(u.Name(), res); err != nil {
		return Artifact{}, err
	}
	u.deps.Logger.Info().Msg("finished running uname")
	return Artifact{ContentType: ContentTypeJSON, Payload: []byte{}}, nil
}
