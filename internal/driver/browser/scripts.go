package browser

// discoverScript walks the visible form controls and returns one object per
// control. Each element gets a data attribute so later scripts can address
// it without guessing CSS paths.
const discoverScript = `(() => {
	const labelFor = (el) => {
		if (el.labels && el.labels.length > 0) return el.labels[0].innerText;
		if (el.getAttribute('aria-label')) return el.getAttribute('aria-label');
		const wrapper = el.closest('label');
		if (wrapper) return wrapper.innerText;
		const group = el.closest('fieldset');
		if (group) {
			const legend = group.querySelector('legend');
			if (legend) return legend.innerText;
		}
		return el.getAttribute('placeholder') || el.name || '';
	};

	const visible = (el) => {
		const rect = el.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	};

	const controls = Array.from(document.querySelectorAll('input, select, textarea'))
		.filter(el => el.type !== 'hidden' && el.type !== 'submit' && el.type !== 'button')
		.filter(el => visible(el) || el.type === 'file');

	const fields = [];
	const seenGroups = new Set();
	let index = 0;

	for (const el of controls) {
		const tag = el.tagName.toLowerCase();
		let kind = 'text';
		let options = [];

		if (tag === 'select') {
			kind = 'select';
			options = Array.from(el.options).map(o => o.text.trim()).filter(t => t);
		} else if (el.type === 'radio' || el.type === 'checkbox') {
			if (!el.name || seenGroups.has(el.name)) continue;
			seenGroups.add(el.name);
			kind = el.type;
			options = Array.from(document.querySelectorAll(
				'input[name="' + el.name.replace(/"/g, '\\"') + '"]'))
				.map(o => labelFor(o).trim()).filter(t => t);
		} else if (el.type === 'file') {
			kind = 'file';
		} else if (el.type === 'number' || el.type === 'tel') {
			kind = 'number';
		}

		const marker = 'apf-' + index++;
		el.setAttribute('data-apf', marker);

		fields.push({
			label: labelFor(el).trim(),
			kind: kind,
			options: options,
			required: el.required || el.getAttribute('aria-required') === 'true',
			selector: '[data-apf="' + marker + '"]',
		});
	}

	return fields;
})()`

// selectOptionScript picks the option whose text matches the value.
const selectOptionScript = `(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	const wanted = %s.toLowerCase();
	for (const option of el.options) {
		if (option.text.trim().toLowerCase() === wanted) {
			el.value = option.value;
			el.dispatchEvent(new Event('change', { bubbles: true }));
			return true;
		}
	}
	return false;
})()`

// clickOptionScript clicks the radio or checkbox in the group whose label
// matches the value.
const clickOptionScript = `(() => {
	const anchor = document.querySelector(%s);
	if (!anchor || !anchor.name) return false;
	const wanted = %s.toLowerCase();
	const labelFor = (el) => {
		if (el.labels && el.labels.length > 0) return el.labels[0].innerText;
		const wrapper = el.closest('label');
		return wrapper ? wrapper.innerText : '';
	};
	for (const el of document.querySelectorAll('input[name="' + anchor.name.replace(/"/g, '\\"') + '"]')) {
		if (labelFor(el).trim().toLowerCase() === wanted) {
			el.click();
			return true;
		}
	}
	return false;
})()`

// advanceScript clicks the most likely submit or next button.
const advanceScript = `(() => {
	const markers = ['submit application', 'submit', 'apply', 'next', 'continue', 'review'];
	const buttons = Array.from(document.querySelectorAll('button, input[type="submit"], a[role="button"]'));
	for (const marker of markers) {
		for (const button of buttons) {
			const text = (button.innerText || button.value || '').trim().toLowerCase();
			if (text === marker || text.startsWith(marker)) {
				button.click();
				return true;
			}
		}
	}
	return false;
})()`

// confirmationScript looks for the usual post-submission markers.
const confirmationScript = `(() => {
	const body = document.body.innerText.toLowerCase();
	const markers = [
		'application submitted',
		'application has been submitted',
		'thank you for applying',
		'thank you for your application',
		'your application was sent',
		'successfully applied',
	];
	return markers.some(m => body.includes(m));
})()`
