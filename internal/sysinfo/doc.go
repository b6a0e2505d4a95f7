// Package sysinfo reads device telemetry: a one-shot snapshot from the REST
// API and live updates from the telemetry push channel.
//
// Updates arrive as partial JSON objects. Those carrying an uptime key update
// the clock cards (uptime, localtime, startTime); the rest update CPU,
// memory, storage, network and device details. Each bucket is shallow-merged
// on its own, so a clock tick never disturbs the last CPU reading.
//
// DecodeTime and DecodeGeneral turn the buckets into typed values for the
// view, and the Format helpers render them.
package sysinfo
