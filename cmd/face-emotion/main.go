// Command face-emotion polls a camera, sends frames to the Azure Face API and
// keeps an overlay with face boxes, age, gender and the dominant emotion.
package main

func main() {
	Execute()
}
