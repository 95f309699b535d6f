package main

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/natserract/datacloud/pkg/datacloud"
)

func renderJobsTable(jobs []datacloud.Job) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "STATE", "OPERATION", "OBJECT", "SOURCE", "MODIFIED"})

	for _, job := range jobs {
		tw.AppendRow(table.Row{
			job.ID,
			job.State,
			job.Operation,
			job.Object,
			job.SourceName,
			formatTime(job.SystemModstamp),
		})
	}

	return tw.Render()
}

func renderJobDetail(job *datacloud.Job) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	tw.AppendRow(table.Row{"ID", job.ID})
	tw.AppendRow(table.Row{"State", job.State})
	tw.AppendRow(table.Row{"Operation", job.Operation})
	tw.AppendRow(table.Row{"Object", job.Object})
	tw.AppendRow(table.Row{"Source", job.SourceName})
	tw.AppendRow(table.Row{"Content type", job.ContentType})
	tw.AppendRow(table.Row{"API version", job.APIVersion})
	tw.AppendRow(table.Row{"Created by", job.CreatedByID})
	tw.AppendRow(table.Row{"Created", formatTime(job.CreatedDate)})
	tw.AppendRow(table.Row{"Modified", formatTime(job.SystemModstamp)})
	if job.Retries > 0 {
		tw.AppendRow(table.Row{"Retries", job.Retries})
	}

	return tw.Render()
}

func formatTime(t datacloud.APITime) string {
	if t.Time.IsZero() {
		return ""
	}
	return t.Time.Format(time.RFC3339)
}
