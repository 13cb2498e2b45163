// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package cfgfile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func Test_getURL(t *testing.T) {
	testCases := []struct {
		name     string
		url      string
		wantErr  error
		wantFile string
	}{
		{
			name:    "empty url returns error",
			url:     "",
			wantErr: ErrGetConfigFile,
		},
		{
			name:    "unreachable git source",
			url:     "git::http://notexist//file.obsrun.hcl",
			wantErr: ErrGetConfigFile,
		},
		{
			name:     "local file",
			url:      "./testdata/test.obsrun.hcl",
			wantFile: "test.obsrun.hcl",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			content, fileName, err := getURL(context.Background(), tc.url)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, content)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantFile, fileName)
			assert.Contains(t, string(content), "fetched")
		})
	}
}

func Test_splitFileNameFromGetterURL(t *testing.T) {
	testCases := []struct {
		url, wantURL, wantFile string
	}{
		{"git::https://github.com/org/repo//dir/config.obsrun.hcl?ref=v1", "git::https://github.com/org/repo//dir?ref=v1", "config.obsrun.hcl"},
		{"git::https://github.com/org/repo//config.obsrun.hcl", "git::https://github.com/org/repo", "config.obsrun.hcl"},
		{"https://example.com/config.obsrun.hcl", "", ""},
	}

	for _, tc := range testCases {
		gotURL, gotFile := splitFileNameFromGetterURL(tc.url)
		assert.Equal(t, tc.wantURL, gotURL, tc.url)
		assert.Equal(t, tc.wantFile, gotFile, tc.url)
	}
}

func TestLoad(t *testing.T) {
	for url, want := range map[string]string{
		"./testdata/test.obsrun.hcl": "fetched",
		"./testdata/test.yaml":       "fetched-yaml",
	} {
		var got string

		cmd := &cli.Command{
			Name:  "probe",
			Flags: []cli.Flag{&cli.StringFlag{Name: FlagName}},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := Load(ctx, cmd)
				if err != nil {
					return err
				}

				got = cfg.Model.Name

				return nil
			},
		}

		require.NoError(t, cmd.Run(context.Background(), []string{"probe", "--" + FlagName, url}))
		assert.Equal(t, want, got)
	}
}
