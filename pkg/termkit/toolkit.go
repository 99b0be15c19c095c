package termkit

import "gitlab.com/tinyland/lab/declui/pkg/native"

// Toolkit returns a registry holding every termkit widget class.
func Toolkit() *native.Registry {
	r := native.NewRegistry()
	r.Register(ClassPushButton, func() native.Widget { return NewPushButton() })
	r.Register(ClassLabel, func() native.Widget { return NewLabel() })
	r.Register(ClassLineEdit, func() native.Widget { return NewLineEdit() })
	r.Register(ClassCheckBox, func() native.Widget { return NewCheckBox() })
	r.Register(ClassRadioButton, func() native.Widget { return NewRadioButton() })
	r.Register(ClassSlider, func() native.Widget { return NewSlider() })
	r.Register(ClassSpinBox, func() native.Widget { return NewSpinBox() })
	r.Register(ClassProgressBar, func() native.Widget { return NewProgressBar() })
	r.Register(ClassComboBox, func() native.Widget { return NewComboBox() })
	r.Register(ClassContainer, func() native.Widget { return NewContainer() })
	r.Register(ClassGroupBox, func() native.Widget { return NewGroupBox() })
	return r
}
