//go:build linux

package entrypoint

import (
	"errors"
	"testing"

	"github.com/cruciblehq/caisson/internal/identity"
)

// Returns a lookup function over a plain map, standing in for the process
// environment.
func envLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func fullEnv() map[string]string {
	return map[string]string{
		EnvUID:   "1000",
		EnvGID:   "1000",
		EnvUser:  "dev",
		EnvGroup: "dev",
		EnvHome:  "/home/dev",
	}
}

func TestRequestFromEnv(t *testing.T) {
	req, err := requestFromEnv(envLookup(fullEnv()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req == nil {
		t.Fatal("req = nil, want populated request")
	}

	if req.UID != 1000 {
		t.Errorf("uid = %d, want 1000", req.UID)
	}
	if req.GID != 1000 {
		t.Errorf("gid = %d, want 1000", req.GID)
	}
	if req.Username != "dev" {
		t.Errorf("username = %q, want dev", req.Username)
	}
	if req.Groupname != "dev" {
		t.Errorf("groupname = %q, want dev", req.Groupname)
	}
	if req.Home != "/home/dev" {
		t.Errorf("home = %q, want /home/dev", req.Home)
	}
}

func TestRequestFromEnvRootMode(t *testing.T) {
	req, err := requestFromEnv(envLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req != nil {
		t.Fatalf("req = %+v, want nil (root mode)", req)
	}
}

func TestRequestFromEnvDefaultHome(t *testing.T) {
	env := fullEnv()
	delete(env, EnvHome)

	req, err := requestFromEnv(envLookup(env))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Home != "/home/dev" {
		t.Fatalf("home = %q, want /home/dev", req.Home)
	}
}

func TestRequestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]string)
	}{
		{
			name:   "uid without gid",
			mutate: func(env map[string]string) { delete(env, EnvGID) },
		},
		{
			name:   "gid without uid",
			mutate: func(env map[string]string) { delete(env, EnvUID) },
		},
		{
			name:   "missing username",
			mutate: func(env map[string]string) { delete(env, EnvUser) },
		},
		{
			name:   "missing groupname",
			mutate: func(env map[string]string) { delete(env, EnvGroup) },
		},
		{
			name:   "non-numeric uid",
			mutate: func(env map[string]string) { env[EnvUID] = "dev" },
		},
		{
			name:   "negative gid",
			mutate: func(env map[string]string) { env[EnvGID] = "-1" },
		},
		{
			name:   "uid exceeding 32 bits",
			mutate: func(env map[string]string) { env[EnvUID] = "4294967296" },
		},
		{
			name:   "relative home",
			mutate: func(env map[string]string) { env[EnvHome] = "home/dev" },
		},
		{
			name:   "colon in username",
			mutate: func(env map[string]string) { env[EnvUser] = "d:ev" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := fullEnv()
			tt.mutate(env)

			_, err := requestFromEnv(envLookup(env))
			if !errors.Is(err, identity.ErrRequest) {
				t.Fatalf("err = %v, want ErrRequest", err)
			}
		})
	}
}

func TestUmaskFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		set     bool
		want    int
		wantOK  bool
		wantErr bool
	}{
		{name: "unset", set: false, wantOK: false},
		{name: "typical", value: "0022", set: true, want: 0022, wantOK: true},
		{name: "no leading zero", value: "22", set: true, want: 0022, wantOK: true},
		{name: "strict", value: "0077", set: true, want: 0077, wantOK: true},
		{name: "non-octal", value: "099", set: true, wantErr: true},
		{name: "garbage", value: "umask", set: true, wantErr: true},
		{name: "out of range", value: "1777", set: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := map[string]string{}
			if tt.set {
				env[EnvUmask] = tt.value
			}

			mask, ok, err := umaskFromEnv(envLookup(env))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && mask != tt.want {
				t.Fatalf("mask = %04o, want %04o", mask, tt.want)
			}
		})
	}
}

func TestStripEnviron(t *testing.T) {
	environ := []string{
		"PATH=/usr/bin",
		EnvUID + "=1000",
		EnvHookUser + "=/.caisson/hooks/user.sh",
		envStage + "=child",
		"CAISSON_ROOT=/project", // user-facing, not part of the contract
		"HOME=/home/dev",
	}

	got := stripEnviron(environ)

	want := []string{"PATH=/usr/bin", "CAISSON_ROOT=/project", "HOME=/home/dev"}
	if len(got) != len(want) {
		t.Fatalf("environ = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("environ[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestProvisionExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "conflict", err: identity.ErrConflict, want: ExitConflict},
		{name: "bad request", err: identity.ErrRequest, want: ExitRequest},
		{name: "io failure", err: identity.ErrProvision, want: ExitProvision},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := provisionExitCode(tt.err); got != tt.want {
				t.Fatalf("code = %d, want %d", got, tt.want)
			}
		})
	}
}
