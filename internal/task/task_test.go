package task

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagesmith/internal/errors"
)

func TestRoundFromWire(t *testing.T) {
	t.Run("maps wire rounds to variants", func(t *testing.T) {
		r, err := RoundFromWire(1)
		require.NoError(t, err)
		assert.Equal(t, RoundCreate, r)

		r, err = RoundFromWire(2)
		require.NoError(t, err)
		assert.Equal(t, RoundUpdate, r)
	})

	t.Run("rejects anything else", func(t *testing.T) {
		for _, wire := range []int{0, 3, -1, 42} {
			_, err := RoundFromWire(wire)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryInput))
		}
	})

	t.Run("round trips through Wire", func(t *testing.T) {
		assert.Equal(t, 1, RoundCreate.Wire())
		assert.Equal(t, 2, RoundUpdate.Wire())
		assert.Equal(t, "create", RoundCreate.String())
		assert.Equal(t, "update", RoundUpdate.String())
	})
}

func TestBuildTaskValidate(t *testing.T) {
	valid := func() BuildTask {
		return BuildTask{
			Email:         "dev@example.com",
			Task:          "weather-widget",
			Round:         RoundCreate,
			Nonce:         "abc123",
			EvaluationURL: "https://eval.example.com/hook",
		}
	}

	t.Run("accepts a complete task", func(t *testing.T) {
		task := valid()
		require.NoError(t, task.Validate())
		assert.Equal(t, "weather-widget", task.RepositoryName())
	})

	t.Run("requires task name", func(t *testing.T) {
		task := valid()
		task.Task = ""
		require.Error(t, task.Validate())
	})

	t.Run("requires evaluation URL", func(t *testing.T) {
		task := valid()
		task.EvaluationURL = ""
		require.Error(t, task.Validate())
	})

	t.Run("requires a resolved round", func(t *testing.T) {
		task := valid()
		task.Round = 0
		require.Error(t, task.Validate())
	})
}

func TestInboundRecordToBuildTask(t *testing.T) {
	t.Run("resolves round and drops the secret", func(t *testing.T) {
		record := InboundRecord{
			Email:         "dev@example.com",
			Secret:        "hunter2",
			Task:          "weather-widget",
			Round:         2,
			Nonce:         "n1",
			Brief:         "build a widget",
			EvaluationURL: "https://eval.example.com/hook",
		}
		task, err := record.ToBuildTask()
		require.NoError(t, err)
		assert.Equal(t, RoundUpdate, task.Round)

		// The secret must never survive into anything the pipeline serializes.
		data, err := json.Marshal(task)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "hunter2")
	})

	t.Run("rejects unknown round before validation", func(t *testing.T) {
		record := InboundRecord{Task: "x", Round: 7, EvaluationURL: "https://e"}
		_, err := record.ToBuildTask()
		require.Error(t, err)
	})
}

func TestCallbackPayloadShapes(t *testing.T) {
	task := BuildTask{
		Email:         "dev@example.com",
		Task:          "weather-widget",
		Round:         RoundCreate,
		Nonce:         "n1",
		EvaluationURL: "https://eval.example.com/hook",
	}

	t.Run("failure payload omits result fields entirely", func(t *testing.T) {
		payload := FailurePayload(&task)
		assert.False(t, payload.IsSuccess())

		data, err := json.Marshal(payload)
		require.NoError(t, err)

		var fields map[string]any
		require.NoError(t, json.Unmarshal(data, &fields))
		assert.NotContains(t, fields, "repo_url")
		assert.NotContains(t, fields, "commit_sha")
		assert.NotContains(t, fields, "pages_url")
		assert.Equal(t, "weather-widget", fields["task"])
		assert.Equal(t, float64(1), fields["round"])
	})

	t.Run("success payload carries the publish result", func(t *testing.T) {
		payload := SuccessPayload(&task, PublishResult{
			RepositoryURL: "https://github.com/o/weather-widget",
			CommitSHA:     "deadbeef",
			PagesURL:      "https://o.github.io/weather-widget/",
		})
		assert.True(t, payload.IsSuccess())

		data, err := json.Marshal(payload)
		require.NoError(t, err)

		var fields map[string]any
		require.NoError(t, json.Unmarshal(data, &fields))
		assert.Equal(t, "https://github.com/o/weather-widget", fields["repo_url"])
		assert.Equal(t, "deadbeef", fields["commit_sha"])
		assert.Equal(t, "https://o.github.io/weather-widget/", fields["pages_url"])
	})
}
