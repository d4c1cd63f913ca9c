/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

// Event is one entry of a rendered story. The set of implementations is
// closed; consumers switch on the concrete type.
type Event interface {
	Kind() Kind
	isEvent()
}

// Kind is the template name of an event ("student-text", "bgm", ...).
type Kind string

const (
	KindDialogue     Kind = "student-text"
	KindInfo         Kind = "info"
	KindSensei       Kind = "sensei"
	KindReply        Kind = "reply"
	KindBackground   Kind = "background"
	KindBGM          Kind = "bgm"
	KindBGMStop      Kind = "bgm-stop"
	KindSound        Kind = "sound"
	KindPopup        Kind = "popup"
	KindScreen       Kind = "screen"
	KindStudentImage Kind = "student-image"
	KindRelationship Kind = "relationship"
)

// Branch places an event inside one option of a reply. The zero value
// means the event is on the main line.
type Branch struct {
	Group  int
	Option int
}

// InBranch reports whether b refers to a reply option.
func (b Branch) InBranch() bool { return b.Option != 0 }

// Dialogue is a line spoken by a character. Spine and Sequence are empty
// when no sprite is shown.
type Dialogue struct {
	Name        string
	Affiliation string
	Text        string
	Spine       string
	Sequence    string
	Branch
}

// Narration is third-person text from a #na line. It renders like Info.
type Narration struct {
	Text string
	Branch
}

// Info is a caption: place names, "To be continued", effects.
type Info struct {
	Text string
	Branch
}

// Sensei is a single protagonist line.
type Sensei struct {
	Text string
	Branch
}

// Reply offers two or more options. Group numbers the reply within a story,
// starting at 1.
type Reply struct {
	Options []string
	Group   int
}

type Background struct {
	File string
}

// BGM starts a music track. LoopStart and LoopEnd are seconds.
type BGM struct {
	ID        int64
	File      string
	Name      string
	Volume    float64
	LoopStart *float64
	LoopEnd   *float64
}

type BGMStop struct{}

type Sound struct {
	File string
	Name string
	Branch
}

type Popup struct {
	File string
}

// ScreenSlot is one character shown in a screen composition.
type ScreenSlot struct {
	Spine    string
	Sequence string
}

// Screen lists the characters on screen when more than one is shown.
type Screen struct {
	Slots []ScreenSlot
	Branch
}

// StudentText is a messenger line from the student. Name and Profile are
// set on the first line of each message group only.
type StudentText struct {
	Name    string
	Profile string
	Text    string
	Branch
}

// StudentImage is a messenger picture from the student.
type StudentImage struct {
	File    string
	Name    string
	Profile string
	Branch
}

// Relationship marks the relationship story unlock inside a conversation.
type Relationship struct {
	Name string
}

func (Dialogue) Kind() Kind { return KindDialogue }
func (Narration) Kind() Kind { return KindInfo }
func (Info) Kind() Kind { return KindInfo }
func (Sensei) Kind() Kind { return KindSensei }
func (Reply) Kind() Kind { return KindReply }
func (Background) Kind() Kind { return KindBackground }
func (BGM) Kind() Kind { return KindBGM }
func (BGMStop) Kind() Kind { return KindBGMStop }
func (Sound) Kind() Kind { return KindSound }
func (Popup) Kind() Kind { return KindPopup }
func (Screen) Kind() Kind { return KindScreen }
func (StudentText) Kind() Kind { return KindDialogue }
func (StudentImage) Kind() Kind { return KindStudentImage }
func (Relationship) Kind() Kind { return KindRelationship }

func (Dialogue) isEvent() {}
func (Narration) isEvent() {}
func (Info) isEvent() {}
func (Sensei) isEvent() {}
func (Reply) isEvent() {}
func (Background) isEvent() {}
func (BGM) isEvent() {}
func (BGMStop) isEvent() {}
func (Sound) isEvent() {}
func (Popup) isEvent() {}
func (Screen) isEvent() {}
func (StudentText) isEvent() {}
func (StudentImage) isEvent() {}
func (Relationship) isEvent() {}
