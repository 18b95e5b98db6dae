package model

// Package model defines the domain records shared by the media pipeline: inbound
// media requests, probed quality options, download results and progress, recognised
// tracks and playlist entries. Records are plain values; ownership rules are
// documented on each type.
