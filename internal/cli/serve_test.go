package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCommand_RunFunc(t *testing.T) {
	wf := &fakeWebflow{}
	wfServer := wf.server(t)
	defer wfServer.Close()
	wf.items = teamItems(wfServer.URL)

	t.Run("clean run", func(t *testing.T) {
		ds := &fakeDataset{}
		dsServer := ds.server(t)
		defer dsServer.Close()

		app, _ := testApp(testConfig(wfServer.URL, dsServer.URL, writeMapping(t, teamMapping)))
		run := (&ServeCommand{}).runFunc(app)

		require.NoError(t, run(context.Background()))
		assert.Len(t, ds.created, 2)
	})

	t.Run("document failures fail the run", func(t *testing.T) {
		ds := &fakeDataset{reject: map[string]bool{"Jo Lee": true}}
		dsServer := ds.server(t)
		defer dsServer.Close()

		app, _ := testApp(testConfig(wfServer.URL, dsServer.URL, writeMapping(t, teamMapping)))
		err := (&ServeCommand{}).runFunc(app)(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 document(s) failed")
	})

	t.Run("missing mapping fails the run", func(t *testing.T) {
		app, _ := testApp(testConfig(wfServer.URL, "http://127.0.0.1:1", "./missing-mapping.yaml"))
		err := (&ServeCommand{}).runFunc(app)(context.Background())
		assert.ErrorContains(t, err, "open mapping file")
	})
}

func TestServeCommand_SkipMigratedNeedsLedger(t *testing.T) {
	app, _ := testApp(testConfig("http://127.0.0.1:1", "http://127.0.0.1:1", writeMapping(t, teamMapping)))

	err := (&ServeCommand{SkipMigrated: true}).Run(context.Background(), app)
	assert.ErrorContains(t, err, "ledger")
}
