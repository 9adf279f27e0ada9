// Command handcut finds poker hand boundaries in tournament videos and
// prints or stores the resulting hand timecodes.
//
//	handcut detect video.mp4 --stream-id day-1
//	handcut runs
//	handcut hands <run-id> --json
//	handcut check
package main
