/*
zadm is the command line interface for managing zone configurations.

Usage

	zadm [command] [flags] [args]

Commands include listing zones and brands, showing and editing
configurations, setting individual properties, deleting zones, attaching to
a zone console and downloading zone images.
*/
package main
