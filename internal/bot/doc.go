// Package bot is the Telegram front end. It classifies inbound messages, offers
// quality and search choices as inline keyboards, delivers downloaded files and
// schedules their removal. All media work is delegated to the download, audio and
// recognize packages.
package bot
